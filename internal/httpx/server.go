package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// userID pulls the already-authenticated caller identity. Authentication
// itself lives in front of this service, but the id still has to be a uuid
// before it reaches a uuid column; anything else is treated as absent.
func userID(r *http.Request) string {
	raw := r.Header.Get("X-User-Id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

// traceID returns the request id assigned by the RequestID middleware.
func traceID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
