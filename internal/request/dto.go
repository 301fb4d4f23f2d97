package request

import (
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/frahmantamala/expense-approval/pkg/format"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// CreateRequestDTO is the input for a new request. Submit creates it
// directly as PENDING.
type CreateRequestDTO struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        Type             `json:"type"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	Submit      bool             `json:"submit,omitempty"`
}

func (d CreateRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", strings.TrimSpace(d.Title)).Required().MaxLength(maxTitleLength)
	v.Field("description", d.Description).MaxLength(maxDescriptionLength)
	v.Field("type", string(d.Type)).Required().OneOf(internal.ErrCodeInvalidRequestType, AllTypes...)
	v.Field("amount", d.Amount).Positive(internal.ErrCodeInvalidAmount)
	v.Field("currency", d.Currency).Custom(currencyCode)
	return v.Validate()
}

// UpdateRequestDTO carries the fields to change; nil fields are kept.
type UpdateRequestDTO struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Type        *Type            `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
}

func (d UpdateRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Title != nil {
		v.Field("title", strings.TrimSpace(*d.Title)).Required().MaxLength(maxTitleLength)
	}
	v.Field("description", d.Description).MaxLength(maxDescriptionLength)
	if d.Type != nil {
		v.Field("type", string(*d.Type)).Required().OneOf(internal.ErrCodeInvalidRequestType, AllTypes...)
	}
	v.Field("amount", d.Amount).Positive(internal.ErrCodeInvalidAmount)
	if d.Currency != nil {
		v.Field("currency", *d.Currency).Custom(currencyCode)
	}
	return v.Validate()
}

func currencyCode(value interface{}) *internal.AppError {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	valid := len(s) == 3
	for _, r := range strings.ToUpper(s) {
		if r < 'A' || r > 'Z' {
			valid = false
		}
	}
	if !valid {
		return internal.NewValidationFieldError("currency", "currency must be a 3-letter ISO 4217 code", internal.ErrCodeInvalidCurrency)
	}
	if _, err := currency.ParseISO(strings.ToUpper(s)); err != nil {
		return internal.NewValidationFieldError("currency", "currency is not a known ISO 4217 code", internal.ErrCodeInvalidCurrency)
	}
	return nil
}

type AttachmentResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	Size          int64     `json:"size"`
	FormattedSize string    `json:"formatted_size"`
	Type          string    `json:"type"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

type Response struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Type            Type                 `json:"type"`
	Status          Status               `json:"status"`
	Requester       user.User            `json:"requester"`
	Amount          *decimal.Decimal     `json:"amount,omitempty"`
	Currency        string               `json:"currency,omitempty"`
	FormattedAmount string               `json:"formatted_amount"`
	Attachments     []AttachmentResponse `json:"attachments"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	ApprovedBy      *user.User           `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	RejectedBy      *user.User           `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time           `json:"rejected_at,omitempty"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	Version         int                  `json:"version"`
	CanEdit         bool                 `json:"can_edit"`
	CanDelete       bool                 `json:"can_delete"`
	CanSubmit       bool                 `json:"can_submit"`
}

// NewResponse renders a request for API and CLI output.
func NewResponse(r ApprovalRequest, f *format.Formatter) Response {
	if f == nil {
		f = format.Default()
	}
	files := make([]AttachmentResponse, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		files = append(files, AttachmentResponse{
			ID:            a.ID,
			Name:          a.Name,
			URL:           a.URL,
			Size:          a.Size,
			FormattedSize: format.Size(a.Size),
			Type:          a.Type,
			UploadedAt:    a.UploadedAt,
		})
	}
	return Response{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Type:            r.Type,
		Status:          r.Status,
		Requester:       r.Requester,
		Amount:          r.Amount,
		Currency:        r.Currency,
		FormattedAmount: f.Amount(r.Amount, r.Currency),
		Attachments:     files,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		RejectedBy:      r.RejectedBy,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		Version:         r.Version,
		CanEdit:         r.CanEdit(),
		CanDelete:       r.CanDelete(),
		CanSubmit:       r.CanSubmit(),
	}
}

func NewResponses(reqs []ApprovalRequest, f *format.Formatter) []Response {
	out := make([]Response, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, NewResponse(r, f))
	}
	return out
}
