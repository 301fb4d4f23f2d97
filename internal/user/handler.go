package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	// Current resolves the authenticated user id from the request context.
	Current func(ctx context.Context) (string, bool)
}

func NewHandler(svc ServiceAPI, current func(ctx context.Context) (string, bool)) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Current:     current,
	}
}

type Response struct {
	User
	CanApprove bool `json:"can_approve"`
	IsFinance  bool `json:"is_finance"`
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Current(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetByID failed", "user_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, Response{User: *u, CanApprove: u.CanApprove(), IsFinance: u.IsFinance()})
}
