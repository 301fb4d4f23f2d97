package request

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/frahmantamala/expense-approval/pkg/format"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateDraft(ctx context.Context, requester user.User, dto CreateRequestDTO) (*ApprovalRequest, error)
	UpdateDraft(ctx context.Context, actor user.User, id string, dto UpdateRequestDTO) (*ApprovalRequest, error)
	Submit(ctx context.Context, actor user.User, id string) (*ApprovalRequest, error)
	Delete(ctx context.Context, actor user.User, id string) error
	UploadAttachment(ctx context.Context, actor user.User, id, name string, data []byte) (*ApprovalRequest, error)
	RemoveAttachment(ctx context.Context, actor user.User, id, fileID string) (*ApprovalRequest, error)
	OpenAttachment(ctx context.Context, actor user.User, id, fileID string) (AttachedFile, []byte, error)
	GetForActor(ctx context.Context, actor user.User, id string) (*ApprovalRequest, error)
	ListForActor(ctx context.Context, actor user.User, status Status) ([]ApprovalRequest, error)
	ListPending(ctx context.Context) ([]ApprovalRequest, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	Formatter *format.Formatter
	// MaxUploadBytes caps the attachment body read from the wire.
	MaxUploadBytes int64
}

func NewHandler(service ServiceAPI, formatter *format.Formatter, maxUploadBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		Service:        service,
		Formatter:      formatter,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request, op string) (user.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.Logger.Error(op + ": user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
	}
	return u, ok
}

// ListRequests handles GET /requests with an optional ?status= filter.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "ListRequests")
	if !ok {
		return
	}

	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.WriteError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	reqs, err := h.Service.ListForActor(r.Context(), u, status)
	if err != nil {
		h.Logger.Error("ListRequests: service error", "error", err, "user_id", u.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": NewResponses(reqs, h.Formatter),
		"total":    len(reqs),
	})
}

// ListPending handles GET /requests/pending for approvers.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r, "ListPending"); !ok {
		return
	}

	reqs, err := h.Service.ListPending(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": NewResponses(reqs, h.Formatter),
		"total":    len(reqs),
	})
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "CreateRequest")
	if !ok {
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.CreateDraft(r.Context(), u, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewResponse(*req, h.Formatter))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "GetRequest")
	if !ok {
		return
	}

	req, err := h.Service.GetForActor(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewResponse(*req, h.Formatter))
}

func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "UpdateRequest")
	if !ok {
		return
	}

	var dto UpdateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.UpdateDraft(r.Context(), u, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewResponse(*req, h.Formatter))
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "SubmitRequest")
	if !ok {
		return
	}

	req, err := h.Service.Submit(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewResponse(*req, h.Formatter))
}

func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "DeleteRequest")
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), u, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment handles POST /requests/{id}/attachments?name=<file name>
// with the raw file as the body.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "UploadAttachment")
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		h.WriteError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	body := io.Reader(r.Body)
	if h.MaxUploadBytes > 0 {
		body = io.LimitReader(r.Body, h.MaxUploadBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "failed to read attachment")
		return
	}

	req, err := h.Service.UploadAttachment(r.Context(), u, chi.URLParam(r, "id"), name, data)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewResponse(*req, h.Formatter))
}

func (h *Handler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "RemoveAttachment")
	if !ok {
		return
	}

	req, err := h.Service.RemoveAttachment(r.Context(), u, chi.URLParam(r, "id"), chi.URLParam(r, "fileID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewResponse(*req, h.Formatter))
}

// DownloadAttachment handles GET /requests/{id}/attachments/{fileID}.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r, "DownloadAttachment")
	if !ok {
		return
	}

	file, data, err := h.Service.OpenAttachment(r.Context(), u, chi.URLParam(r, "id"), chi.URLParam(r, "fileID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.Type)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(file.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("DownloadAttachment: write failed", "error", err)
	}
}
