package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type business struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Category string `json:"category"`
	City     string `json:"city"`
}

var stubBusinesses = []business{
	{Slug: "joes-bakery", Name: "Joe's Bakery", Category: "food", City: "Springfield"},
	{Slug: "sunny-nannies", Name: "Sunny Nannies", Category: "nannies", City: "Springfield"},
	{Slug: "fix-it-plumbing", Name: "Fix-It Plumbing", Category: "home-services", City: "Shelbyville"},
}

// mountHubStub registra uma versão mínima das rotas públicas do hub.
func mountHubStub(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Local Business Hub</h1>"))
	})
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/businesses", listBusinesses)
	r.Get("/api/businesses/{slug}", getBusiness)
}

func listBusinesses(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	city := strings.TrimSpace(r.URL.Query().Get("city"))

	out := make([]business, 0, len(stubBusinesses))
	for _, b := range stubBusinesses {
		if category != "" && !strings.EqualFold(b.Category, category) {
			continue
		}
		if city != "" && !strings.EqualFold(b.City, city) {
			continue
		}
		out = append(out, b)
	}
	writeJSON(w, http.StatusOK, out)
}

func getBusiness(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	for _, b := range stubBusinesses {
		if b.Slug == slug {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "business not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
