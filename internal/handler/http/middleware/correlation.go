package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/messaging"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// CorrelationID carries the request ID into published events. Must run
// after chi's RequestID middleware.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(messaging.WithCorrelationID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
