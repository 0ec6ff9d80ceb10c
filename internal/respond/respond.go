// Package respond writes the JSON envelope shared by handlers and middleware.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func Error(w http.ResponseWriter, code int, message string) {
	JSON(w, code, ErrorBody{Success: false, Message: message})
}
