package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	requestDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/request"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRequestRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RequestRepository Suite")
}

var _ = Describe("RequestRepository", func() {
	var (
		db   *gorm.DB
		repo request.Repository
		ctx  context.Context
		base request.ApprovalRequest
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		err = db.AutoMigrate(&requestDatamodel.ApprovalRequest{}, &requestDatamodel.Attachment{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewRequestRepository(db)

		amount := decimal.NewFromInt(15000000)
		created := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
		base = request.ApprovalRequest{
			ID:          "req-1",
			Title:       "Yêu cầu chi phí đi công tác Hà Nội",
			Description: "Chi phí khách sạn",
			Type:        request.TypeExpense,
			Status:      request.StatusPending,
			Requester:   user.User{ID: "user-1", Name: "User Lê", Email: "user@example.com", Role: user.RoleEmployee, Department: "Marketing"},
			Amount:      &amount,
			Currency:    "VND",
			Attachments: []request.AttachedFile{
				{ID: "file-1", Name: "invoice.pdf", URL: "/files/invoice.pdf", Size: 1024000, Type: "application/pdf", UploadedAt: created},
				{ID: "file-2", Name: "ticket.png", URL: "/files/ticket.png", Size: 2048, Type: "image/png", UploadedAt: created},
			},
			CreatedAt: created,
			UpdatedAt: created,
			Version:   1,
		}
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	It("should create and read back a request with ordered attachments", func() {
		// When
		Expect(repo.Save(ctx, base)).To(Succeed())
		got, err := repo.Get(ctx, "req-1")

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
		Expect(got.Title).To(Equal(base.Title))
		Expect(got.Requester).To(Equal(base.Requester))
		Expect(got.Amount.Equal(*base.Amount)).To(BeTrue())
		Expect(got.Attachments).To(HaveLen(2))
		Expect(got.Attachments[0].ID).To(Equal("file-1"))
		Expect(got.Attachments[1].ID).To(Equal("file-2"))
		Expect(got.Version).To(Equal(1))
	})

	It("should return nil for an unknown id", func() {
		got, err := repo.Get(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("should update only from the previous version", func() {
		// Given
		Expect(repo.Save(ctx, base)).To(Succeed())
		rejectedAt := base.CreatedAt.Add(time.Hour)
		rejected := base.Next(rejectedAt)
		rejected.Status = request.StatusRejected
		rejected.RejectedBy = &user.User{ID: "manager-1", Name: "Manager Trần", Role: user.RoleManager}
		rejected.RejectedAt = &rejectedAt
		rejected.RejectionReason = "Thiếu hóa đơn gốc"
		rejected.Attachments = rejected.Attachments[:1]

		// When
		first := repo.Save(ctx, rejected)
		second := repo.Save(ctx, rejected)

		// Then
		Expect(first).NotTo(HaveOccurred())
		Expect(second).To(MatchError(internal.ErrVersionConflict))

		got, err := repo.Get(ctx, "req-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(request.StatusRejected))
		Expect(got.RejectedBy.ID).To(Equal("manager-1"))
		Expect(got.RejectionReason).To(Equal("Thiếu hóa đơn gốc"))
		Expect(got.ApprovedBy).To(BeNil())
		Expect(got.Attachments).To(HaveLen(1))
		Expect(got.Version).To(Equal(2))
	})

	It("should refuse to load a row that breaks the request invariants", func() {
		// Given
		row := requestDatamodel.ApprovalRequest{
			ID:              "req-7",
			Title:           "Mua máy in",
			Type:            string(request.TypePurchase),
			Status:          string(request.StatusApproved),
			RequesterID:     "user-1",
			Requester:       requestDatamodel.UserRef{ID: "user-1", Name: "User Lê", Email: "user@example.com", Role: "EMPLOYEE"},
			RejectionReason: "short",
			Version:         3,
			CreatedAt:       base.CreatedAt,
			UpdatedAt:       base.CreatedAt,
		}
		Expect(db.Create(&row).Error).To(Succeed())

		// When
		got, err := repo.Get(ctx, "req-7")
		_, listErr := repo.List(ctx)

		// Then
		Expect(got).To(BeNil())
		Expect(err).To(MatchError(internal.ErrCorruptRequest))
		Expect(err.Error()).To(ContainSubstring("stored request is invalid"))
		Expect(listErr).To(MatchError(internal.ErrCorruptRequest))
	})

	It("should refuse to create over an existing row", func() {
		Expect(repo.Save(ctx, base)).To(Succeed())
		Expect(repo.Save(ctx, base)).To(MatchError(internal.ErrVersionConflict))
	})

	It("should list newest first and remove rows", func() {
		Expect(repo.Save(ctx, base)).To(Succeed())
		second := base.Clone()
		second.ID = "req-2"
		second.Attachments = nil
		second.CreatedAt = base.CreatedAt.Add(time.Hour)
		Expect(repo.Save(ctx, second)).To(Succeed())

		all, err := repo.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
		Expect(all[0].ID).To(Equal("req-2"))

		removed, err := repo.Remove(ctx, "req-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeTrue())

		var attachments int64
		Expect(db.Model(&requestDatamodel.Attachment{}).Count(&attachments).Error).To(Succeed())
		Expect(attachments).To(BeZero())
	})
})
