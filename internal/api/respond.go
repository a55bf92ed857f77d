package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeInternalError logs the cause and answers with a generic message.
// Driver and SQL error text never reaches the client.
func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("unhandled error")
	writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}
