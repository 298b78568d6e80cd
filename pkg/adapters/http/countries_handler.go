// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
)

// staticCountries is served when the upstream country listing fails, so
// the UI keeps working through ReliefWeb outages.
var staticCountries = []schema.Country{
	{Code: "HTI", Name: "Haiti"},
	{Code: "USA", Name: "United States"},
	{Code: "PHL", Name: "Philippines"},
	{Code: "NPL", Name: "Nepal"},
	{Code: "PAK", Name: "Pakistan"},
}

// handleCountries handles GET /api/countries
func (h *Handler) handleCountries(w http.ResponseWriter, r *http.Request) {
	h.countriesMu.Lock()
	cached := h.countriesCache
	h.countriesMu.Unlock()
	if cached != nil {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	countries, err := h.client.Countries(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch countries", "error", err)
		h.writeJSON(w, http.StatusOK, staticCountries)
		return
	}

	h.countriesMu.Lock()
	h.countriesCache = countries
	h.countriesMu.Unlock()

	h.logger.Info("Loaded countries from ReliefWeb", "count", len(countries))
	h.writeJSON(w, http.StatusOK, countries)
}
