package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AppName        string
	Version        string
	Env            string
	AllowedOrigins []string
	LogLevel       slog.Level
}

type Handlers struct {
	Payroll      PayrollHandler
	Salary       SalaryHandler
	Audit        AuditHandler
	Notification NotificationHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env == "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.AppName),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// SSE authenticates with a short-lived query token
		r.Get("/notifications/stream", h.Notification.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireCompany)

			r.Route("/payroll", func(r chi.Router) {
				r.Post("/preview", h.Payroll.Preview)
				r.Post("/generate", h.Payroll.GenerateMonth)
				r.Post("/approve", h.Payroll.ApproveAll)
				r.Post("/pay", h.Payroll.MarkPaidAll)

				r.Route("/records", func(r chi.Router) {
					r.Get("/", h.Payroll.ListRecords)
					r.Post("/", h.Payroll.GenerateRecord)
					r.Delete("/", h.Payroll.BulkDelete)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.Payroll.GetRecord)
						r.Post("/approve", h.Payroll.Approve)
						r.Post("/pay", h.Payroll.MarkPaid)
						r.Put("/status", h.Payroll.SetStatus)
					})
				})

				r.Route("/months/{month}", func(r chi.Router) {
					r.Get("/summary", h.Payroll.GetSummary)
					r.Get("/lock", h.Payroll.GetLock)
					r.Get("/locks", h.Payroll.ListLocks)
					r.Post("/close", h.Payroll.CloseMonth)
					r.Post("/unlock", h.Payroll.UnlockMonth)
				})
			})

			r.Route("/salary-structures", func(r chi.Router) {
				r.Put("/", h.Salary.BulkUpsert)
				r.Get("/{employeeID}", h.Salary.GetStructure)
				r.Get("/{employeeID}/history", h.Salary.ListHistory)
			})

			r.Get("/audit-logs", h.Audit.List)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Post("/read", h.Notification.MarkAsRead)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
				r.Delete("/{id}", h.Notification.Delete)
				r.Get("/preferences", h.Notification.GetPreferences)
				r.Put("/preferences", h.Notification.UpdatePreference)
				r.Get("/sse-token", h.Notification.GetSSEToken)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	return r
}
