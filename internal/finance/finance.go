// Package finance hands forwarded requests over to the finance team: a
// webhook delivered from a worker pool, and an Excel export.
package finance

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/shopspring/decimal"
)

// Requests is the read side of the request store the finance jobs need.
type Requests interface {
	Get(ctx context.Context, id string) (*request.ApprovalRequest, error)
	ListByStatus(ctx context.Context, status request.Status) ([]request.ApprovalRequest, error)
}

// Payload is the body POSTed to the finance webhook.
type Payload struct {
	RequestID  string           `json:"request_id"`
	Title      string           `json:"title"`
	Type       string           `json:"type"`
	Amount     *decimal.Decimal `json:"amount"`
	Currency   string           `json:"currency"`
	Requester  string           `json:"requester"`
	ApprovedBy string           `json:"approved_by"`
	ApprovedAt *time.Time       `json:"approved_at"`
}

func NewPayload(req request.ApprovalRequest) Payload {
	p := Payload{
		RequestID:  req.ID,
		Title:      req.Title,
		Type:       string(req.Type),
		Amount:     req.Amount,
		Currency:   req.Currency,
		Requester:  req.Requester.Email,
		ApprovedAt: req.ApprovedAt,
	}
	if req.ApprovedBy != nil {
		p.ApprovedBy = req.ApprovedBy.Email
	}
	return p
}
