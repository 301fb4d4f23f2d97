package postgres

import (
	"context"
	"errors"
	"fmt"

	requestDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/request"
	"github.com/frahmantamala/expense-approval/internal/request"
	"gorm.io/gorm"
)

// RequestRepository implements request.Repository using GORM.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) request.Repository {
	return &RequestRepository{db: db}
}

func orderedAttachments(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *RequestRepository) Get(ctx context.Context, id string) (*request.ApprovalRequest, error) {
	var row requestDatamodel.ApprovalRequest
	err := r.db.WithContext(ctx).
		Preload("Attachments", orderedAttachments).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request %s: %w", id, err)
	}
	req := request.FromDataModel(&row)
	if err := request.CheckStored(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) List(ctx context.Context) ([]request.ApprovalRequest, error) {
	var rows []requestDatamodel.ApprovalRequest
	err := r.db.WithContext(ctx).
		Preload("Attachments", orderedAttachments).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]request.ApprovalRequest, 0, len(rows))
	for i := range rows {
		req := request.FromDataModel(&rows[i])
		if err := request.CheckStored(req); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Save inserts version 1 or updates the row whose version is req.Version-1,
// replacing the attachment list in the same transaction.
func (r *RequestRepository) Save(ctx context.Context, req request.ApprovalRequest) error {
	row := request.ToDataModel(req)
	attachments := row.Attachments
	row.Attachments = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Version <= 1 {
			stored, err := r.currentVersion(tx, req.ID)
			if err != nil {
				return err
			}
			if err := request.CheckVersion(stored, req); err != nil {
				return err
			}
			if err := tx.Omit("Attachments").Create(row).Error; err != nil {
				return fmt.Errorf("create request %s: %w", req.ID, err)
			}
		} else {
			res := tx.Model(&requestDatamodel.ApprovalRequest{}).
				Where("id = ? AND version = ?", req.ID, req.Version-1).
				Updates(map[string]interface{}{
					"title":            row.Title,
					"description":      row.Description,
					"request_type":     row.Type,
					"status":           row.Status,
					"requester_id":     row.RequesterID,
					"requester":        row.Requester,
					"amount":           row.Amount,
					"currency":         row.Currency,
					"approved_by":      row.ApprovedBy,
					"approved_at":      row.ApprovedAt,
					"rejected_by":      row.RejectedBy,
					"rejected_at":      row.RejectedAt,
					"rejection_reason": row.RejectionReason,
					"version":          row.Version,
					"updated_at":       row.UpdatedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("update request %s: %w", req.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				stored, err := r.currentVersion(tx, req.ID)
				if err != nil {
					return err
				}
				return request.CheckVersion(stored, req)
			}
			if err := tx.Where("request_id = ?", req.ID).Delete(&requestDatamodel.Attachment{}).Error; err != nil {
				return fmt.Errorf("clear attachments for %s: %w", req.ID, err)
			}
		}

		if len(attachments) > 0 {
			if err := tx.Create(&attachments).Error; err != nil {
				return fmt.Errorf("store attachments for %s: %w", req.ID, err)
			}
		}
		return nil
	})
}

func (r *RequestRepository) currentVersion(tx *gorm.DB, id string) (*request.ApprovalRequest, error) {
	var row requestDatamodel.ApprovalRequest
	err := tx.Select("id", "version").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read version of %s: %w", id, err)
	}
	return &request.ApprovalRequest{ID: row.ID, Version: row.Version}, nil
}

func (r *RequestRepository) Remove(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&requestDatamodel.Attachment{}).Error; err != nil {
			return fmt.Errorf("delete attachments of %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&requestDatamodel.ApprovalRequest{})
		if res.Error != nil {
			return fmt.Errorf("delete request %s: %w", id, res.Error)
		}
		removed = res.RowsAffected > 0
		return nil
	})
	return removed, err
}
