package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

type errorBody struct {
	Data   any         `json:"data"`
	Errors []errorItem `json:"errors"`
}

type errorItem struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// errorCode names transport-level failures in the same vocabulary the API uses
func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return "VALIDATION_ERROR"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, errorBody{Errors: []errorItem{{Message: userMsg, Code: errorCode(status)}}})
}

func respondWithJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
