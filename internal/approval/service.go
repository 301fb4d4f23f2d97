// Package approval moves pending requests to their final state.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/user"
)

type Service struct {
	repo      request.Repository
	publisher events.Publisher
	rules     *validation.Validator[Action]
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo request.Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		rules:     DefaultRules(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) check(req request.ApprovalRequest, action Action, verb string) error {
	if res := s.rules.Validate(action); !res.Valid {
		return ruleError(res)
	}
	if !req.IsPending() {
		return internal.NewStateError(
			fmt.Sprintf("only pending requests can be %s", verb),
			internal.ErrCodeInvalidRequestStatus,
		).WithDetails(map[string]string{"request_id": req.ID, "status": string(req.Status)})
	}
	return nil
}

// Approve returns req as APPROVED by action.ActionBy. req is not modified.
func (s *Service) Approve(req request.ApprovalRequest, action Action) (request.ApprovalRequest, error) {
	action.Kind = KindApprove
	if err := s.check(req, action, "approved"); err != nil {
		return request.ApprovalRequest{}, err
	}

	now := s.now()
	next := req.Next(now)
	next.Status = request.StatusApproved
	approver := *action.ActionBy
	next.ApprovedBy = &approver
	next.ApprovedAt = &now
	next.RejectedBy = nil
	next.RejectedAt = nil
	next.RejectionReason = ""
	return next, nil
}

// Reject returns req as REJECTED with the trimmed reason.
func (s *Service) Reject(req request.ApprovalRequest, action Action) (request.ApprovalRequest, error) {
	action.Kind = KindReject
	if err := s.check(req, action, "rejected"); err != nil {
		return request.ApprovalRequest{}, err
	}

	now := s.now()
	next := req.Next(now)
	next.Status = request.StatusRejected
	rejecter := *action.ActionBy
	next.RejectedBy = &rejecter
	next.RejectedAt = &now
	next.RejectionReason = strings.TrimSpace(action.Reason)
	next.ApprovedBy = nil
	next.ApprovedAt = nil
	return next, nil
}

// ForwardToFinance returns req as FORWARDED, recording the actor as approver.
func (s *Service) ForwardToFinance(req request.ApprovalRequest, action Action) (request.ApprovalRequest, error) {
	action.Kind = KindForward
	if err := s.check(req, action, "forwarded"); err != nil {
		return request.ApprovalRequest{}, err
	}

	now := s.now()
	next := req.Next(now)
	next.Status = request.StatusForwarded
	approver := *action.ActionBy
	next.ApprovedBy = &approver
	next.ApprovedAt = &now
	next.RejectedBy = nil
	next.RejectedAt = nil
	next.RejectionReason = ""
	return next, nil
}

// Decide loads the request named by action, applies the transition for
// action.Kind and saves the result. Nothing is stored when any step fails.
func (s *Service) Decide(ctx context.Context, action Action) (*request.ApprovalRequest, error) {
	var (
		transition func(request.ApprovalRequest, Action) (request.ApprovalRequest, error)
		eventType  string
	)
	switch action.Kind {
	case KindApprove:
		transition, eventType = s.Approve, events.EventTypeRequestApproved
	case KindReject:
		transition, eventType = s.Reject, events.EventTypeRequestRejected
	case KindForward:
		transition, eventType = s.ForwardToFinance, events.EventTypeRequestForwarded
	default:
		return nil, internal.NewValidationError(fmt.Sprintf("unknown action %q", action.Kind), internal.ErrCodeValidationFailed)
	}

	if res := s.rules.Validate(action); !res.Valid {
		s.logger.Warn("action rejected", "request_id", action.RequestID, "action", action.Kind, "rule", res.Rule)
		return nil, ruleError(res)
	}

	current, err := s.repo.Get(ctx, action.RequestID)
	if err != nil {
		s.logger.Error("failed to load request", "error", err, "request_id", action.RequestID)
		return nil, fmt.Errorf("load request %s: %w", action.RequestID, err)
	}
	if current == nil {
		return nil, request.ErrNotFound(action.RequestID)
	}

	next, err := transition(*current, action)
	if err != nil {
		s.logger.Warn("transition refused",
			"request_id", action.RequestID,
			"action", action.Kind,
			"status", current.Status,
			"error", err)
		return nil, err
	}

	if err := s.repo.Save(ctx, next); err != nil {
		if internal.IsConflictError(err) {
			s.logger.Warn("request changed concurrently", "request_id", next.ID, "version", next.Version)
			return nil, err
		}
		s.logger.Error("failed to save decision", "error", err, "request_id", next.ID)
		return nil, fmt.Errorf("save request %s: %w", next.ID, err)
	}

	s.logger.Info("request decided",
		"request_id", next.ID,
		"action", action.Kind,
		"status", next.Status,
		"actor_id", action.ActionBy.ID,
		"version", next.Version)

	if s.publisher != nil {
		event := events.NewRequestEvent(eventType, next.ID, action.ActionBy.ID, string(next.Status), next.Version)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish decision", "error", err, "request_id", next.ID)
		}
	}
	return &next, nil
}

func (s *Service) ApproveByID(ctx context.Context, id string, actor user.User) (*request.ApprovalRequest, error) {
	return s.Decide(ctx, Action{Kind: KindApprove, RequestID: id, ActionBy: &actor})
}

func (s *Service) RejectByID(ctx context.Context, id string, actor user.User, reason string) (*request.ApprovalRequest, error) {
	return s.Decide(ctx, Action{Kind: KindReject, RequestID: id, ActionBy: &actor, Reason: reason})
}

func (s *Service) ForwardByID(ctx context.Context, id string, actor user.User) (*request.ApprovalRequest, error) {
	return s.Decide(ctx, Action{Kind: KindForward, RequestID: id, ActionBy: &actor})
}
