package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	u "github.com/riteshkumar/core-ledger/internal/utils"
)

const RequestIDHeader = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestID reuses a caller supplied X-Request-ID or mints one.
func requestID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs incoming HTTP requests and records their latency.
func loggingMiddleware(logger *slog.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.ObserveRequest(r.Method, route, strconv.Itoa(wrapped.statusCode), time.Since(start).Seconds())

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", r.Header.Get(RequestIDHeader),
			)
		})
	}
}

func recoverer(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic while serving request",
						"path", r.URL.Path,
						"request_id", r.Header.Get(RequestIDHeader),
						"error", fmt.Sprint(rec),
					)
					u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate resolves the bearer token into an identity on the request
// context.
func authenticate(authorizer auth.Authorizer, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				handleServiceError(w, logger, errors.ErrMissingToken, "authenticate")
				return
			}
			id, err := authorizer.Authorize(r.Context(), token)
			if err != nil {
				logger.Warn("rejected token",
					"path", r.URL.Path,
					"error", err.Error(),
				)
				handleServiceError(w, logger, err, "authenticate")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// requireOperation enforces the policy table for one route.
func requireOperation(op auth.Operation, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				handleServiceError(w, logger, errors.ErrMissingToken, string(op))
				return
			}
			if err := auth.Require(op, id); err != nil {
				logger.Warn("operation not permitted",
					"operation", string(op),
					"user_id", id.UserID,
					"role", string(id.Role),
				)
				handleServiceError(w, logger, err, string(op))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// identity returns the caller resolved by authenticate.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

// guarded wraps fn with the policy check for op plus any extra middleware,
// applied outermost first.
func guarded(op auth.Operation, logger *slog.Logger, fn http.HandlerFunc, extra ...mux.MiddlewareFunc) http.Handler {
	var h http.Handler = fn
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	return requireOperation(op, logger)(h)
}
