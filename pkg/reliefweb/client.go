// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package reliefweb is a client for the ReliefWeb v1 REST API.
package reliefweb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
)

// DefaultBaseURL is the public ReliefWeb API endpoint.
const DefaultBaseURL = "https://api.reliefweb.int/v1"

// defaultLimit is the maximum report count requested per query.
const defaultLimit = 1000

// Client talks to the ReliefWeb API.
type Client struct {
	baseURL    string
	appName    string
	httpClient *http.Client
}

// NewClient creates a ReliefWeb client. appName identifies the caller to
// the API and is required by ReliefWeb's terms. An empty baseURL selects
// the public endpoint.
func NewClient(baseURL, appName string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		appName:    appName,
		httpClient: &http.Client{},
	}
}

// ReportsQuery selects the reports to fetch.
type ReportsQuery struct {
	DisasterName string
	CountryISO3  string
	Limit        int
}

type condition struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Negate bool   `json:"negate,omitempty"`
}

type reportsPayload struct {
	Limit   int    `json:"limit"`
	Preset  string `json:"preset"`
	Profile string `json:"profile"`
	Filter  struct {
		Operator   string      `json:"operator"`
		Conditions []condition `json:"conditions"`
	} `json:"filter"`
	Fields struct {
		Include []string `json:"include"`
	} `json:"fields"`
}

type reportsEnvelope struct {
	Data []struct {
		ID     schema.FlexID `json:"id"`
		Fields reportFields  `json:"fields"`
	} `json:"data"`
}

type nameEntry struct {
	Name string `json:"name"`
}

type fileEntry struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type reportFields struct {
	Title    string          `json:"title"`
	Date     schema.DateInfo `json:"date"`
	URL      string          `json:"url"`
	URLAlias string          `json:"url_alias"`
	Body     string          `json:"body"`
	BodyHTML string          `json:"body-html"`
	Source   []nameEntry     `json:"source"`
	Language []nameEntry     `json:"language"`
	File     []fileEntry     `json:"file"`
}

// Reports queries English, non-map reports for a disaster in a country
// and converts them to metadata records. Attachment descriptors carry the
// remote URL; downloading them is the caller's concern.
func (c *Client) Reports(ctx context.Context, query ReportsQuery) ([]*schema.Report, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var payload reportsPayload
	payload.Limit = limit
	payload.Preset = "latest"
	payload.Profile = "full"
	payload.Filter.Operator = "AND"
	payload.Filter.Conditions = []condition{
		{Field: "primary_country.iso3", Value: query.CountryISO3},
		{Field: "disaster.name", Value: query.DisasterName},
		{Field: "language.code", Value: "en"},
		{Field: "format.name", Value: "Map", Negate: true},
	}
	payload.Fields.Include = []string{
		"id", "title", "date", "country", "primary_country",
		"disaster", "source", "url", "url_alias", "body", "body-html",
		"file", "language",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	u := c.baseURL + "/reports?appname=" + url.QueryEscape(c.appName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reports request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reports returned status %d: %s", resp.StatusCode, data)
	}

	var envelope reportsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	reports := make([]*schema.Report, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		reports = append(reports, buildReport(entry.ID, entry.Fields))
	}
	return reports, nil
}

// buildReport converts API fields to the canonical metadata record shape.
// Body text prefers the HTML body (stripped to visible text) over the
// plain one.
func buildReport(id schema.FlexID, fields reportFields) *schema.Report {
	bodyText := fields.Body
	if fields.BodyHTML != "" {
		bodyText = htmlToText([]byte(fields.BodyHTML))
	}

	sources := make(schema.NameList, len(fields.Source))
	for i, s := range fields.Source {
		sources[i] = s.Name
	}

	var language schema.NameOrString
	if len(fields.Language) > 0 {
		language = schema.NameOrString(fields.Language[0].Name)
	}

	files := make([]schema.FileDescriptor, 0, len(fields.File))
	for _, f := range fields.File {
		files = append(files, schema.FileDescriptor{
			Filename: f.Filename,
			URL:      f.URL,
		})
	}

	return &schema.Report{
		ReliefWebID: id,
		Title:       fields.Title,
		Date:        fields.Date,
		URL:         fields.URL,
		URLAlias:    fields.URLAlias,
		Source:      sources,
		Language:    language,
		BodyText:    bodyText,
		Files:       files,
	}
}

type countriesEnvelope struct {
	Data []struct {
		Fields struct {
			Name string `json:"name"`
			ISO3 string `json:"iso3"`
		} `json:"fields"`
	} `json:"data"`
}

// Countries returns the full country list, sorted by name. Entries
// without both a name and an ISO3 code are skipped.
func (c *Client) Countries(ctx context.Context) ([]schema.Country, error) {
	u, err := url.Parse(c.baseURL + "/countries")
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("appname", c.appName)
	q.Set("limit", strconv.Itoa(defaultLimit))
	q.Add("fields[include][]", "name")
	q.Add("fields[include][]", "iso3")
	q.Add("fields[include][]", "id")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("countries request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("countries returned status %d: %s", resp.StatusCode, data)
	}

	var envelope countriesEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var countries []schema.Country
	for _, entry := range envelope.Data {
		if entry.Fields.Name == "" || entry.Fields.ISO3 == "" {
			continue
		}
		countries = append(countries, schema.Country{
			Code: entry.Fields.ISO3,
			Name: entry.Fields.Name,
		})
	}
	sort.Slice(countries, func(i, j int) bool {
		return countries[i].Name < countries[j].Name
	})
	return countries, nil
}

// Download fetches a report attachment.
func (c *Client) Download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s returned status %d", fileURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
