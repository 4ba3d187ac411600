package kit

import (
	"encoding/json"
	"net/http"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Fault is the body for errors nobody handled on the way up.
type Fault struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

type FaultResponse struct {
	Error Fault `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

func WriteFault(w http.ResponseWriter, status int, msg string) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if msg == "" {
		msg = "Something went wrong!"
	}
	WriteJSON(w, status, FaultResponse{Error: Fault{
		Message:   msg,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}
