// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package reliefweb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reports" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("appname") != "test-app" {
			t.Errorf("appname = %q", r.URL.Query().Get("appname"))
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		filter := payload["filter"].(map[string]any)
		if filter["operator"] != "AND" {
			t.Errorf("operator = %v", filter["operator"])
		}
		if n := len(filter["conditions"].([]any)); n != 4 {
			t.Errorf("got %d conditions, want 4", n)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [{
				"id": 12345,
				"fields": {
					"title": "Flood Update",
					"date": {"created": "2023-01-02"},
					"url_alias": "https://example.org/flood",
					"body": "plain body",
					"body-html": "<p>Rich <b>body</b></p><script>x()</script>",
					"source": [{"name": "UNHCR"}],
					"language": [{"name": "English"}],
					"file": [{"url": "https://example.org/f.pdf", "filename": "f.pdf"}]
				}
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-app")
	reports, err := client.Reports(context.Background(), ReportsQuery{
		DisasterName: "Hurricane Matthew",
		CountryISO3:  "HTI",
	})
	if err != nil {
		t.Fatalf("Reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}

	r := reports[0]
	if r.ReliefWebID.String() != "12345" {
		t.Errorf("id = %q", r.ReliefWebID)
	}
	if r.Title != "Flood Update" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Body() != "Rich body" {
		t.Errorf("body = %q, want stripped HTML preferred over plain", r.Body())
	}
	if r.Language.String() != "English" {
		t.Errorf("language = %q", r.Language)
	}
	if len(r.Files) != 1 || r.Files[0].URL != "https://example.org/f.pdf" {
		t.Errorf("files = %+v", r.Files)
	}
}

func TestReports_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-app")
	if _, err := client.Reports(context.Background(), ReportsQuery{}); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestCountries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/countries" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"data": [
				{"fields": {"name": "Philippines", "iso3": "PHL"}},
				{"fields": {"name": "Haiti", "iso3": "HTI"}},
				{"fields": {"name": "", "iso3": "XXX"}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-app")
	countries, err := client.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries: %v", err)
	}

	if len(countries) != 2 {
		t.Fatalf("got %d countries, want 2 (nameless dropped)", len(countries))
	}
	if countries[0].Name != "Haiti" || countries[1].Name != "Philippines" {
		t.Errorf("not sorted by name: %v", countries)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-app")
	data, err := client.Download(context.Background(), server.URL+"/f.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("data = %q", data)
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"<div><script>bad()</script>visible</div>", "visible"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := htmlToText([]byte(tt.in)); got != tt.want {
			t.Errorf("htmlToText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
