package request

import (
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusForwarded Status = "FORWARDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusForwarded:
		return true
	}
	return false
}

type Type string

const (
	TypeExpense  Type = "EXPENSE"
	TypeLeave    Type = "LEAVE"
	TypePurchase Type = "PURCHASE"
	TypeOther    Type = "OTHER"
)

var AllTypes = []string{string(TypeExpense), string(TypeLeave), string(TypePurchase), string(TypeOther)}

func (t Type) Valid() bool {
	switch t {
	case TypeExpense, TypeLeave, TypePurchase, TypeOther:
		return true
	}
	return false
}

// MinRejectionReasonLength is counted in characters after trimming.
const MinRejectionReasonLength = 10

// AttachedFile describes an uploaded file. The bytes live in the blob store.
type AttachedFile struct {
	ID         string
	Name       string
	URL        string
	Size       int64
	Type       string
	UploadedAt time.Time
}

// ApprovalRequest is a snapshot of a request. Operations never modify a
// snapshot in place; they build a new one with Clone and bump Version.
type ApprovalRequest struct {
	ID          string
	Title       string
	Description string
	Type        Type
	Status      Status
	Requester   user.User
	Amount      *decimal.Decimal
	Currency    string
	Attachments []AttachedFile
	CreatedAt   time.Time
	UpdatedAt   time.Time

	ApprovedBy *user.User
	ApprovedAt *time.Time

	RejectedBy      *user.User
	RejectedAt      *time.Time
	RejectionReason string

	Version int
}

func (r ApprovalRequest) IsDraft() bool { return r.Status == StatusDraft }

func (r ApprovalRequest) IsPending() bool { return r.Status == StatusPending }

// IsApproved is true only for APPROVED. Forwarded requests are reported by
// IsForwarded; HasApprover covers both.
func (r ApprovalRequest) IsApproved() bool { return r.Status == StatusApproved }

func (r ApprovalRequest) IsForwarded() bool { return r.Status == StatusForwarded }

func (r ApprovalRequest) IsRejected() bool { return r.Status == StatusRejected }

// HasApprover is true for the statuses that carry approvedBy.
func (r ApprovalRequest) HasApprover() bool {
	return r.Status == StatusApproved || r.Status == StatusForwarded
}

// IsTerminal reports statuses with no further transition.
func (r ApprovalRequest) IsTerminal() bool {
	return r.HasApprover()
}

func (r ApprovalRequest) CanEdit() bool { return r.IsDraft() || r.IsRejected() }

func (r ApprovalRequest) CanDelete() bool { return r.IsDraft() }

func (r ApprovalRequest) CanSubmit() bool { return r.IsDraft() }

// LastProcessor returns whoever approved, forwarded or rejected the request.
func (r ApprovalRequest) LastProcessor() *user.User {
	if r.ApprovedBy != nil {
		u := *r.ApprovedBy
		return &u
	}
	if r.RejectedBy != nil {
		u := *r.RejectedBy
		return &u
	}
	return nil
}

// Attachment finds an attached file by id.
func (r ApprovalRequest) Attachment(id string) (AttachedFile, bool) {
	for _, f := range r.Attachments {
		if f.ID == id {
			return f, true
		}
	}
	return AttachedFile{}, false
}

// Clone returns a deep copy that shares no mutable state with r.
func (r ApprovalRequest) Clone() ApprovalRequest {
	c := r
	if r.Amount != nil {
		a := *r.Amount
		c.Amount = &a
	}
	if r.Attachments != nil {
		c.Attachments = make([]AttachedFile, len(r.Attachments))
		copy(c.Attachments, r.Attachments)
	}
	c.ApprovedBy = cloneUser(r.ApprovedBy)
	c.RejectedBy = cloneUser(r.RejectedBy)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.RejectedAt = cloneTime(r.RejectedAt)
	return c
}

// Next returns a clone stamped as the following version of r.
func (r ApprovalRequest) Next(now time.Time) ApprovalRequest {
	c := r.Clone()
	c.UpdatedAt = now
	c.Version = r.Version + 1
	return c
}

// Validate checks the cross-field invariants of a snapshot.
func (r ApprovalRequest) Validate() error {
	switch {
	case r.ID == "":
		return internal.NewValidationError("request id is required", internal.ErrCodeMissingField)
	case !r.Status.Valid():
		return internal.NewValidationError("invalid request status", internal.ErrCodeInvalidRequestStatus)
	case !r.Type.Valid():
		return internal.NewValidationError("invalid request type", internal.ErrCodeInvalidRequestType)
	case r.Requester.IsZero():
		return internal.NewValidationError("requester is required", internal.ErrCodeMissingField)
	}

	hasApproval := r.ApprovedBy != nil || r.ApprovedAt != nil
	hasRejection := r.RejectedBy != nil || r.RejectedAt != nil || r.RejectionReason != ""

	if hasApproval && hasRejection {
		return internal.NewValidationError("approval and rejection fields are mutually exclusive", internal.ErrCodeInvalidRequestStatus)
	}
	if r.HasApprover() && (r.ApprovedBy == nil || r.ApprovedAt == nil) {
		return internal.NewValidationError("approved requests must record the approver", internal.ErrCodeInvalidRequestStatus)
	}
	if !r.HasApprover() && hasApproval {
		return internal.NewValidationError("approval fields set on a request that is not approved", internal.ErrCodeInvalidRequestStatus)
	}
	if r.IsRejected() {
		if r.RejectedBy == nil || r.RejectedAt == nil {
			return internal.NewValidationError("rejected requests must record the rejecter", internal.ErrCodeInvalidRequestStatus)
		}
		if len([]rune(strings.TrimSpace(r.RejectionReason))) < MinRejectionReasonLength {
			return internal.NewValidationError("rejection reason must be at least 10 characters", internal.ErrCodeInvalidRejectionReason)
		}
	} else if hasRejection {
		return internal.NewValidationError("rejection fields set on a request that is not rejected", internal.ErrCodeInvalidRequestStatus)
	}
	return nil
}

func cloneUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
