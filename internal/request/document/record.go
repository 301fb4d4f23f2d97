package document

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/shopspring/decimal"
)

// userRecord is the persisted shape of a user reference.
type userRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

type fileRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// record is one element of the expense_requests array.
type record struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	Requester       userRecord       `json:"requester"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	AttachedFiles   []fileRecord     `json:"attachedFiles"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	ApprovedBy      *userRecord      `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time       `json:"approvedAt,omitempty"`
	RejectedBy      *userRecord      `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time       `json:"rejectedAt,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	Version         int              `json:"version"`
}

func toUserRecord(u user.User) userRecord {
	return userRecord{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Department: u.Department,
		Avatar:     u.Avatar,
	}
}

func (u userRecord) toUser() user.User {
	return user.User{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       user.Role(u.Role),
		Department: u.Department,
		Avatar:     u.Avatar,
	}
}

func toUserRecordPtr(u *user.User) *userRecord {
	if u == nil {
		return nil
	}
	r := toUserRecord(*u)
	return &r
}

func (u *userRecord) toUserPtr() *user.User {
	if u == nil {
		return nil
	}
	v := u.toUser()
	return &v
}

func toRecord(r request.ApprovalRequest) record {
	var files []fileRecord
	if r.Attachments != nil {
		files = make([]fileRecord, 0, len(r.Attachments))
	}
	for _, f := range r.Attachments {
		files = append(files, fileRecord{
			ID:         f.ID,
			Name:       f.Name,
			URL:        f.URL,
			Size:       f.Size,
			Type:       f.Type,
			UploadedAt: f.UploadedAt,
		})
	}
	return record{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Type:            string(r.Type),
		Status:          string(r.Status),
		Requester:       toUserRecord(r.Requester),
		Amount:          r.Amount,
		Currency:        r.Currency,
		AttachedFiles:   files,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ApprovedBy:      toUserRecordPtr(r.ApprovedBy),
		ApprovedAt:      r.ApprovedAt,
		RejectedBy:      toUserRecordPtr(r.RejectedBy),
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		Version:         r.Version,
	}
}

func (rec record) toRequest() request.ApprovalRequest {
	// null stays nil and [] stays empty
	var files []request.AttachedFile
	if rec.AttachedFiles != nil {
		files = make([]request.AttachedFile, 0, len(rec.AttachedFiles))
		for _, f := range rec.AttachedFiles {
			files = append(files, request.AttachedFile{
				ID:         f.ID,
				Name:       f.Name,
				URL:        f.URL,
				Size:       f.Size,
				Type:       f.Type,
				UploadedAt: f.UploadedAt,
			})
		}
	}
	version := rec.Version
	if version == 0 {
		version = 1
	}
	return request.ApprovalRequest{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		Type:            request.Type(rec.Type),
		Status:          request.Status(rec.Status),
		Requester:       rec.Requester.toUser(),
		Amount:          rec.Amount,
		Currency:        rec.Currency,
		Attachments:     files,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		ApprovedBy:      rec.ApprovedBy.toUserPtr(),
		ApprovedAt:      rec.ApprovedAt,
		RejectedBy:      rec.RejectedBy.toUserPtr(),
		RejectedAt:      rec.RejectedAt,
		RejectionReason: rec.RejectionReason,
		Version:         version,
	}
}
