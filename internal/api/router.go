// Package api is the HTTP transport for the indexing-submit and find
// endpoints.
package api

import (
	"github.com/gorilla/mux"
)

// NewRouter wires the API routes.
func NewRouter(index *IndexHandler, find *FindHandler, healthH *HealthHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", healthH.Check).Methods("GET")
	r.HandleFunc("/api/index", index.Create).Methods("POST")
	r.HandleFunc("/api/find", find.Find).Methods("POST")

	return r
}
