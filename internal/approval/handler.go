package approval

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/frahmantamala/expense-approval/pkg/format"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ApproveByID(ctx context.Context, id string, actor user.User) (*request.ApprovalRequest, error)
	RejectByID(ctx context.Context, id string, actor user.User, reason string) (*request.ApprovalRequest, error)
	ForwardByID(ctx context.Context, id string, actor user.User) (*request.ApprovalRequest, error)
}

type RejectDTO struct {
	Reason string `json:"reason"`
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	Formatter *format.Formatter
}

func NewHandler(service ServiceAPI, formatter *format.Formatter) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Formatter:   formatter,
	}
}

// ApproveRequest handles PATCH /requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := h.Service.ApproveByID(r.Context(), chi.URLParam(r, "id"), actor)
	h.respond(w, req, err)
}

// RejectRequest handles PATCH /requests/{id}/reject with {"reason": "..."}
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto RejectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.RejectByID(r.Context(), chi.URLParam(r, "id"), actor, dto.Reason)
	h.respond(w, req, err)
}

// ForwardRequest handles PATCH /requests/{id}/forward
func (h *Handler) ForwardRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := h.Service.ForwardByID(r.Context(), chi.URLParam(r, "id"), actor)
	h.respond(w, req, err)
}

func (h *Handler) respond(w http.ResponseWriter, req *request.ApprovalRequest, err error) {
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, request.NewResponse(*req, h.Formatter))
}
