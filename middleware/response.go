package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/sessionauth"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v with status code and disables caching.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteError maps err through sessionauth.HTTPStatus. In production only the
// public message is sent; otherwise the full error chain is.
func WriteError(w http.ResponseWriter, err error, production bool) {
	msg := sessionauth.PublicMessage(err)
	if !production {
		msg = err.Error()
	}
	WriteJSON(w, sessionauth.HTTPStatus(err), ErrorBody{Message: msg})
}
