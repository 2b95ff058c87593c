package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/server/auth"
)

type ctxKey string

const (
	uidKey  ctxKey = "uid"
	roleKey ctxKey = "role"
)

func uidFrom(ctx context.Context) string {
	v, _ := ctx.Value(uidKey).(string)
	return v
}

func roleFrom(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}

// requireAuth accepts a Bearer access token and puts the account id and
// role into the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing token"})
			return
		}
		claims, err := auth.ParseToken(strings.TrimPrefix(raw, "Bearer "), h.jwtSecret)
		if err != nil {
			writeError(r.Context(), w, h.logger, common.ErrorUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), uidKey, claims.UserID)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests writes one line per request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(rec, r)
		// sign links carry the token in the path
		path := r.URL.Path
		if strings.HasPrefix(path, "/sign/") {
			path = "/sign/***"
		}
		h.logger.Info(r.Context(), "http request",
			"method", r.Method, "path", path, "status", rec.status, "duration", time.Since(start))
	})
}
