package request

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/google/uuid"
)

// AttachmentStore keeps attachment bytes and describes what it stored.
type AttachmentStore interface {
	Put(ctx context.Context, name string, data []byte) (AttachedFile, error)
	Open(ctx context.Context, file AttachedFile) ([]byte, error)
}

// Service implements the requester side of the workflow: drafting, editing,
// submitting and deleting requests, plus the read queries.
type Service struct {
	repo      Repository
	files     AttachmentStore
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(repo Repository, files AttachmentStore, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		files:     files,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator replaces the id source.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// CreateDraft creates a request owned by requester, as DRAFT or, when
// dto.Submit is set, directly as PENDING.
func (s *Service) CreateDraft(ctx context.Context, requester user.User, dto CreateRequestDTO) (*ApprovalRequest, error) {
	if requester.IsZero() {
		return nil, internal.NewValidationError("missing field: requester", internal.ErrCodeMissingField)
	}
	if err := dto.Validate(); err != nil {
		s.logger.Warn("request validation failed", "error", err, "user_id", requester.ID)
		return nil, err
	}

	now := s.now()
	status := StatusDraft
	if dto.Submit {
		status = StatusPending
	}

	req := ApprovalRequest{
		ID:          s.newID(),
		Title:       strings.TrimSpace(dto.Title),
		Description: dto.Description,
		Type:        dto.Type,
		Status:      status,
		Requester:   requester,
		Amount:      dto.Amount,
		Currency:    strings.ToUpper(dto.Currency),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}

	if err := s.repo.Save(ctx, req); err != nil {
		s.logger.Error("failed to create request", "error", err, "user_id", requester.ID)
		return nil, wrapRepoErr("create request", err)
	}

	s.logger.Info("request created",
		"request_id", req.ID,
		"user_id", requester.ID,
		"status", req.Status,
		"type", req.Type)

	s.publish(ctx, events.EventTypeRequestCreated, req, requester.ID)
	if req.IsPending() {
		s.publish(ctx, events.EventTypeRequestSubmitted, req, requester.ID)
	}
	return &req, nil
}

// UpdateDraft edits a DRAFT or REJECTED request. Editing a rejected request
// returns it to DRAFT and clears the rejection so it can be submitted again.
func (s *Service) UpdateDraft(ctx context.Context, actor user.User, id string, dto UpdateRequestDTO) (*ApprovalRequest, error) {
	current, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !current.CanEdit() {
		s.logger.Warn("cannot edit request in current status", "request_id", id, "status", current.Status)
		return nil, internal.ErrCannotModifyRequest
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	next := current.Next(s.now())
	if dto.Title != nil {
		next.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Description != nil {
		next.Description = *dto.Description
	}
	if dto.Type != nil {
		next.Type = *dto.Type
	}
	if dto.Amount != nil {
		amount := *dto.Amount
		next.Amount = &amount
	}
	if dto.Currency != nil {
		next.Currency = strings.ToUpper(*dto.Currency)
	}
	if next.IsRejected() {
		next.Status = StatusDraft
		next.RejectedBy = nil
		next.RejectedAt = nil
		next.RejectionReason = ""
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("failed to update request", "error", err, "request_id", id)
		return nil, wrapRepoErr("update request", err)
	}

	s.logger.Info("request updated", "request_id", id, "user_id", actor.ID, "version", next.Version)
	return &next, nil
}

// Submit moves a DRAFT request to PENDING.
func (s *Service) Submit(ctx context.Context, actor user.User, id string) (*ApprovalRequest, error) {
	current, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !current.CanSubmit() {
		s.logger.Warn("cannot submit request in current status", "request_id", id, "status", current.Status)
		return nil, internal.ErrCannotSubmitRequest
	}

	next := current.Next(s.now())
	next.Status = StatusPending

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("failed to submit request", "error", err, "request_id", id)
		return nil, wrapRepoErr("submit request", err)
	}

	s.logger.Info("request submitted", "request_id", id, "user_id", actor.ID)
	s.publish(ctx, events.EventTypeRequestSubmitted, next, actor.ID)
	return &next, nil
}

// Delete removes a DRAFT request. Attachment blobs are left in the store.
func (s *Service) Delete(ctx context.Context, actor user.User, id string) error {
	current, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !current.CanDelete() {
		s.logger.Warn("cannot delete request in current status", "request_id", id, "status", current.Status)
		return internal.ErrCannotDeleteRequest
	}

	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete request", "error", err, "request_id", id)
		return wrapRepoErr("delete request", err)
	}
	if !removed {
		return ErrNotFound(id)
	}

	s.logger.Info("request deleted", "request_id", id, "user_id", actor.ID)
	s.publish(ctx, events.EventTypeRequestDeleted, *current, actor.ID)
	return nil
}

// UploadAttachment stores data and appends it to an editable request.
func (s *Service) UploadAttachment(ctx context.Context, actor user.User, id, name string, data []byte) (*ApprovalRequest, error) {
	current, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !current.CanEdit() {
		return nil, internal.ErrCannotModifyRequest
	}
	if s.files == nil {
		return nil, internal.NewInternalError("attachment storage is not configured", nil)
	}

	file, err := s.files.Put(ctx, name, data)
	if err != nil {
		s.logger.Warn("attachment rejected", "error", err, "request_id", id, "name", name)
		return nil, err
	}

	next := current.Next(s.now())
	next.Attachments = append(next.Attachments, file)

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("failed to attach file", "error", err, "request_id", id)
		return nil, wrapRepoErr("attach file", err)
	}

	s.logger.Info("attachment added", "request_id", id, "file_id", file.ID, "size", file.Size, "type", file.Type)
	return &next, nil
}

// RemoveAttachment drops a file from the request's list. The blob stays.
func (s *Service) RemoveAttachment(ctx context.Context, actor user.User, id, fileID string) (*ApprovalRequest, error) {
	current, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !current.CanEdit() {
		return nil, internal.ErrCannotModifyRequest
	}
	if _, ok := current.Attachment(fileID); !ok {
		return nil, internal.ErrAttachmentNotFound
	}

	next := current.Next(s.now())
	kept := next.Attachments[:0]
	for _, f := range next.Attachments {
		if f.ID != fileID {
			kept = append(kept, f)
		}
	}
	next.Attachments = kept

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("failed to remove attachment", "error", err, "request_id", id)
		return nil, wrapRepoErr("remove attachment", err)
	}

	s.logger.Info("attachment removed", "request_id", id, "file_id", fileID)
	return &next, nil
}

// OpenAttachment returns a file's metadata and content for anyone who may
// view the request.
func (s *Service) OpenAttachment(ctx context.Context, actor user.User, id, fileID string) (AttachedFile, []byte, error) {
	req, err := s.GetForActor(ctx, actor, id)
	if err != nil {
		return AttachedFile{}, nil, err
	}
	file, ok := req.Attachment(fileID)
	if !ok {
		return AttachedFile{}, nil, internal.ErrAttachmentNotFound
	}
	if s.files == nil {
		return AttachedFile{}, nil, internal.NewInternalError("attachment storage is not configured", nil)
	}
	data, err := s.files.Open(ctx, file)
	if err != nil {
		s.logger.Error("failed to open attachment", "error", err, "request_id", id, "file_id", fileID)
		return AttachedFile{}, nil, err
	}
	return file, data, nil
}

// Get returns the request or a not found error.
func (s *Service) Get(ctx context.Context, id string) (*ApprovalRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Error("failed to get request", "error", err, "request_id", id)
		return nil, wrapRepoErr("get request", err)
	}
	if req == nil {
		return nil, ErrNotFound(id)
	}
	return req, nil
}

// GetForActor returns the request when actor owns it or may review it.
func (s *Service) GetForActor(ctx context.Context, actor user.User, id string) (*ApprovalRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, *req) {
		s.logger.Warn("unauthorized access to request", "request_id", id, "user_id", actor.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return req, nil
}

func (s *Service) List(ctx context.Context) ([]ApprovalRequest, error) {
	reqs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list requests", "error", err)
		return nil, wrapRepoErr("list requests", err)
	}
	return reqs, nil
}

func (s *Service) filter(ctx context.Context, keep func(ApprovalRequest) bool) ([]ApprovalRequest, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ApprovalRequest, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) ListByRequester(ctx context.Context, userID string) ([]ApprovalRequest, error) {
	return s.filter(ctx, func(r ApprovalRequest) bool { return r.Requester.ID == userID })
}

func (s *Service) ListDrafts(ctx context.Context, userID string) ([]ApprovalRequest, error) {
	return s.filter(ctx, func(r ApprovalRequest) bool { return r.Requester.ID == userID && r.IsDraft() })
}

func (s *Service) ListPending(ctx context.Context) ([]ApprovalRequest, error) {
	return s.ListByStatus(ctx, StatusPending)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]ApprovalRequest, error) {
	return s.filter(ctx, func(r ApprovalRequest) bool { return r.Status == status })
}

// ListForActor returns what actor may see: everything for reviewers and
// finance, their own requests otherwise. An empty status means any.
func (s *Service) ListForActor(ctx context.Context, actor user.User, status Status) ([]ApprovalRequest, error) {
	return s.filter(ctx, func(r ApprovalRequest) bool {
		if status != "" && r.Status != status {
			return false
		}
		return canView(actor, r)
	})
}

func canView(actor user.User, r ApprovalRequest) bool {
	return actor.CanApprove() || actor.IsFinance() || r.Requester.ID == actor.ID
}

func (s *Service) loadOwned(ctx context.Context, actor user.User, id string) (*ApprovalRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Requester.ID != actor.ID {
		s.logger.Warn("request not owned by actor", "request_id", id, "user_id", actor.ID, "owner_id", req.Requester.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return req, nil
}

func (s *Service) publish(ctx context.Context, eventType string, req ApprovalRequest, actorID string) {
	if s.publisher == nil {
		return
	}
	event := events.NewRequestEvent(eventType, req.ID, actorID, string(req.Status), req.Version)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish request event", "error", err, "event_type", eventType, "request_id", req.ID)
	}
}
