package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorBody is the JSON body of every error answer of the session API.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON serializes data and writes it with statusCode and an
// application/json content type.
//
// If marshaling fails, it responds with 500 Internal Server Error and
// returns a wrapped error; statusCode is not written in that case.
//
// Example usage:
//
//	WriteJSON(w, report, http.StatusOK)
func WriteJSON(w http.ResponseWriter, data any, statusCode int) (int, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "error writing data to JSON", http.StatusInternalServerError)
		return 0, fmt.Errorf("error writing data to JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return w.Write(jsonData)
}

// WriteError writes msg as an [ErrorBody].
func WriteError(w http.ResponseWriter, msg string, statusCode int) {
	_, _ = WriteJSON(w, ErrorBody{Error: msg}, statusCode)
}
