package request

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UserRef is a denormalized copy of a user stored as JSON text.
type UserRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

func (u UserRef) Value() (driver.Value, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (u *UserRef) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, u)
	case string:
		return json.Unmarshal([]byte(v), u)
	default:
		return fmt.Errorf("unsupported user reference type %T", value)
	}
}

type ApprovalRequest struct {
	ID              string           `gorm:"primaryKey;type:varchar(64)"`
	Title           string           `gorm:"column:title;not null"`
	Description     string           `gorm:"column:description"`
	Type            string           `gorm:"column:request_type;not null"`
	Status          string           `gorm:"column:status;not null;index"`
	RequesterID     string           `gorm:"column:requester_id;not null;index"`
	Requester       UserRef          `gorm:"column:requester;type:text;not null"`
	Amount          *decimal.Decimal `gorm:"column:amount;type:numeric(18,2)"`
	Currency        string           `gorm:"column:currency"`
	ApprovedBy      *UserRef         `gorm:"column:approved_by;type:text"`
	ApprovedAt      *time.Time       `gorm:"column:approved_at"`
	RejectedBy      *UserRef         `gorm:"column:rejected_by;type:text"`
	RejectedAt      *time.Time       `gorm:"column:rejected_at"`
	RejectionReason string           `gorm:"column:rejection_reason"`
	Version         int              `gorm:"column:version;not null"`
	CreatedAt       time.Time        `gorm:"column:created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at"`

	Attachments []Attachment `gorm:"foreignKey:RequestID"`
}

func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

type Attachment struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	RequestID  string    `gorm:"column:request_id;not null;index"`
	Position   int       `gorm:"column:position;not null"`
	Name       string    `gorm:"column:name;not null"`
	URL        string    `gorm:"column:url;not null"`
	Size       int64     `gorm:"column:size_bytes;not null"`
	MimeType   string    `gorm:"column:mime_type;not null"`
	UploadedAt time.Time `gorm:"column:uploaded_at"`
}

func (Attachment) TableName() string {
	return "request_attachments"
}
