package middlewares

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

// HttpError logs err with the request id and replies with message as JSON.
func HttpError(w http.ResponseWriter, r *http.Request, message string, status int, err error) {
	log.Printf("[%s] HTTP %d - %s: %v", RequestIDFromContext(r.Context()), status, message, err)
	RespondJSON(w, ErrorResponse{Error: message}, status)
}
