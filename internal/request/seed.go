package request

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/shopspring/decimal"
)

// SampleRequests returns two pending requests owned by requester for local
// demos. Each call returns fresh values at Version 1.
func SampleRequests(requester user.User) []ApprovalRequest {
	travel := decimal.NewFromInt(15000000)
	monitors := decimal.NewFromInt(12000000)
	day := func(d int) time.Time { return time.Date(2025, 11, d, 9, 0, 0, 0, time.UTC) }

	return []ApprovalRequest{
		{
			ID:          "req-1",
			Title:       "Yêu cầu chi phí đi công tác Hà Nội",
			Description: "Chi phí vé máy bay và khách sạn 3 ngày tại Hà Nội để gặp khách hàng",
			Type:        TypeExpense,
			Status:      StatusPending,
			Requester:   requester,
			Amount:      &travel,
			Currency:    "VND",
			Attachments: []AttachedFile{{
				ID:         "f1",
				Name:       "invoice.pdf",
				URL:        "/files/invoice.pdf",
				Size:       1024000,
				Type:       "application/pdf",
				UploadedAt: day(1),
			}},
			CreatedAt: day(3),
			UpdatedAt: day(3),
			Version:   1,
		},
		{
			ID:          "req-2",
			Title:       "Mua thiết bị văn phòng",
			Description: "Mua 2 màn hình Dell 27 inch cho phòng thiết kế",
			Type:        TypePurchase,
			Status:      StatusPending,
			Requester:   requester,
			Amount:      &monitors,
			Currency:    "VND",
			CreatedAt:   day(2),
			UpdatedAt:   day(2),
			Version:     1,
		},
	}
}
