package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/finance"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything the router mounts. Nil handlers leave their
// routes unregistered.
type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	Request  *request.Handler
	Approval *approval.Handler
	Finance  *finance.Handler
	Spec     *swagger.Spec

	// AllowedOrigins is passed to the CORS middleware.
	AllowedOrigins string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	if h.Health == nil {
		h.Health = NewHealthHandler(nil)
	}

	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if h.Spec != nil {
		router.Get(swagger.SpecRoute, h.Spec.ServeSpec)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
			}

			pr.Route("/requests", func(rr chi.Router) {
				if h.Request != nil {
					rr.Get("/", h.Request.ListRequests)
					rr.Post("/", h.Request.CreateRequest)
					rr.With(h.Auth.RequireApprover).Get("/pending", h.Request.ListPending)
					rr.Get("/{id}", h.Request.GetRequest)
					rr.Put("/{id}", h.Request.UpdateRequest)
					rr.Delete("/{id}", h.Request.DeleteRequest)
					rr.Post("/{id}/submit", h.Request.SubmitRequest)
					rr.Post("/{id}/attachments", h.Request.UploadAttachment)
					rr.Get("/{id}/attachments/{fileID}", h.Request.DownloadAttachment)
					rr.Delete("/{id}/attachments/{fileID}", h.Request.RemoveAttachment)
				}

				if h.Approval != nil {
					rr.Group(func(ar chi.Router) {
						ar.Use(h.Auth.RequireApprover)
						ar.Patch("/{id}/approve", h.Approval.ApproveRequest)
						ar.Patch("/{id}/reject", h.Approval.RejectRequest)
						ar.Patch("/{id}/forward", h.Approval.ForwardRequest)
					})
				}
			})

			if h.Finance != nil {
				pr.Route("/finance", func(fr chi.Router) {
					fr.Use(middleware.RequireRoles(logger, user.RoleFinance, user.RoleAdmin))
					fr.Get("/export", h.Finance.Export)
					fr.Post("/resend", h.Finance.Resend)
				})
			}
		})
	})

	base := transport.NewBaseHandler(logger)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.WriteError(w, http.StatusNotFound, "route not found")
	})
}
