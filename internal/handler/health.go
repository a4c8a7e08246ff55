package handler

import (
	"net/http"
)

// HandleHealth answers GET /health. It does not touch the store.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w)
}

// HandleNotFound answers unmatched routes with the error envelope.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{Message: "url " + r.URL.Path + " not found"})
}

func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, Envelope{Message: "method " + r.Method + " not allowed on " + r.URL.Path})
}
