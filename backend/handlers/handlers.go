package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ygtkoc/RMS/backend/auth"
)

// Auth is the shared flow service, set once at startup.
var Auth *auth.Service

func Init(svc *auth.Service) {
	Auth = svc
}

// writeJSON serializes a flow result. Expected failures are part of the
// envelope, so the HTTP status stays 200; callers branch on "success".
func writeJSON(w http.ResponseWriter, res auth.Result) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
