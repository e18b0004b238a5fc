package portfolio_contact

import (
	"encoding/json"
	"net/http"
	"time"
)

// Result is the JSON body of every contact endpoint response.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func writeResult(w http.ResponseWriter, status int, ok bool, msg string, at time.Time) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Result{
		Success:   ok,
		Message:   msg,
		Data:      nil,
		Timestamp: at.Format(timestampLayout),
	})
}
