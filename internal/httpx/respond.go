// Package httpx holds the JSON envelope, request decoding and middleware shared
// by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/obs"
)

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Success: false, Error: message})
}

// WriteError renders err through the taxonomy. Causes are logged, never sent.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, msg := apperr.Public(err)
	if status >= http.StatusInternalServerError {
		obs.WithTrace(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	WriteFailure(w, status, msg)
}
