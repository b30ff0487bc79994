package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
)

// RequireCompany rejects viewers that have not finished onboarding into a
// company. Must run after AuthRequired.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := ViewerFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "Unauthorized")
			return
		}

		if viewer.CompanyID == "" || viewer.Role == user.RolePending {
			response.HandleError(w, user.ErrCompanyIDRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
