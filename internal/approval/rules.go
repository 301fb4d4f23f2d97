package approval

import (
	"strings"
	"unicode/utf8"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/user"
)

type Kind string

const (
	KindApprove Kind = "approve"
	KindReject  Kind = "reject"
	KindForward Kind = "forward"
)

func (k Kind) Valid() bool {
	switch k {
	case KindApprove, KindReject, KindForward:
		return true
	}
	return false
}

// Action is one reviewer decision on a request.
type Action struct {
	Kind      Kind
	RequestID string
	ActionBy  *user.User
	Reason    string
}

const (
	RuleRequiredFields  = "required_fields"
	RuleRejectionReason = "rejection_reason"
	RulePermission      = "permission"
)

var ruleCodes = map[string]internal.ErrorCode{
	RuleRequiredFields:  internal.ErrCodeMissingField,
	RuleRejectionReason: internal.ErrCodeInvalidRejectionReason,
	RulePermission:      internal.ErrCodePermissionDenied,
}

func RequiredFieldsRule() validation.Rule[Action] {
	return validation.RuleFunc(RuleRequiredFields, func(a Action) validation.Result {
		if strings.TrimSpace(a.RequestID) == "" {
			return validation.Failure("missing field: request_id")
		}
		if a.ActionBy == nil || a.ActionBy.IsZero() {
			return validation.Failure("missing field: action_by")
		}
		return validation.Success()
	})
}

// RejectionReasonRule only applies to rejections.
func RejectionReasonRule() validation.Rule[Action] {
	return validation.RuleFunc(RuleRejectionReason, func(a Action) validation.Result {
		if a.Kind != KindReject {
			return validation.Success()
		}
		reason := strings.TrimSpace(a.Reason)
		if reason == "" {
			return validation.Failure("rejection reason is required")
		}
		if utf8.RuneCountInString(reason) < request.MinRejectionReasonLength {
			return validation.Failure("rejection reason must be at least 10 characters")
		}
		return validation.Success()
	})
}

func PermissionRule() validation.Rule[Action] {
	return validation.RuleFunc(RulePermission, func(a Action) validation.Result {
		if a.ActionBy == nil || !a.ActionBy.CanApprove() {
			return validation.Failure("you do not have permission to approve requests")
		}
		return validation.Success()
	})
}

// DefaultRules checks the action, then the reason, then the actor's role.
func DefaultRules() *validation.Validator[Action] {
	return validation.NewPipeline(RequiredFieldsRule(), RejectionReasonRule(), PermissionRule())
}

func ruleError(res validation.Result) *internal.AppError {
	code, ok := ruleCodes[res.Rule]
	if !ok {
		code = internal.ErrCodeValidationFailed
	}
	return internal.NewValidationError(res.Reason, code)
}
