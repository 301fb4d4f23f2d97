package request

import (
	requestDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/request"
	"github.com/frahmantamala/expense-approval/internal/user"
)

func toUserRef(u user.User) requestDatamodel.UserRef {
	return requestDatamodel.UserRef{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Department: u.Department,
		Avatar:     u.Avatar,
	}
}

func fromUserRef(r requestDatamodel.UserRef) user.User {
	return user.User{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Role:       user.Role(r.Role),
		Department: r.Department,
		Avatar:     r.Avatar,
	}
}

func ToDataModel(r ApprovalRequest) *requestDatamodel.ApprovalRequest {
	row := &requestDatamodel.ApprovalRequest{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Type:            string(r.Type),
		Status:          string(r.Status),
		RequesterID:     r.Requester.ID,
		Requester:       toUserRef(r.Requester),
		Amount:          r.Amount,
		Currency:        r.Currency,
		ApprovedAt:      r.ApprovedAt,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ApprovedBy != nil {
		ref := toUserRef(*r.ApprovedBy)
		row.ApprovedBy = &ref
	}
	if r.RejectedBy != nil {
		ref := toUserRef(*r.RejectedBy)
		row.RejectedBy = &ref
	}
	for i, f := range r.Attachments {
		row.Attachments = append(row.Attachments, requestDatamodel.Attachment{
			ID:         f.ID,
			RequestID:  r.ID,
			Position:   i,
			Name:       f.Name,
			URL:        f.URL,
			Size:       f.Size,
			MimeType:   f.Type,
			UploadedAt: f.UploadedAt,
		})
	}
	return row
}

func FromDataModel(row *requestDatamodel.ApprovalRequest) ApprovalRequest {
	r := ApprovalRequest{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Type:            Type(row.Type),
		Status:          Status(row.Status),
		Requester:       fromUserRef(row.Requester),
		Amount:          row.Amount,
		Currency:        row.Currency,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		ApprovedAt:      row.ApprovedAt,
		RejectedAt:      row.RejectedAt,
		RejectionReason: row.RejectionReason,
		Version:         row.Version,
	}
	if row.ApprovedBy != nil {
		u := fromUserRef(*row.ApprovedBy)
		r.ApprovedBy = &u
	}
	if row.RejectedBy != nil {
		u := fromUserRef(*row.RejectedBy)
		r.RejectedBy = &u
	}
	for _, a := range row.Attachments {
		r.Attachments = append(r.Attachments, AttachedFile{
			ID:         a.ID,
			Name:       a.Name,
			URL:        a.URL,
			Size:       a.Size,
			Type:       a.MimeType,
			UploadedAt: a.UploadedAt,
		})
	}
	return r
}
