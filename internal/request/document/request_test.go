package document_test

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/kvstore"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/request/document"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestDocumentRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Request Repository Suite")
}

var _ = Describe("RequestRepository", func() {
	var (
		ctx   context.Context
		store *kvstore.Store
		repo  *document.RequestRepository
		base  request.ApprovalRequest
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		store, err = kvstore.New(ctx, "mem://localhost/requests-"+uuid.NewString())
		Expect(err).NotTo(HaveOccurred())
		repo = document.NewRequestRepository(store, "")

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
			},
			CreatedAt: created,
			UpdatedAt: created,
			Version:   1,
		}
	})

	It("should round trip every field", func() {
		// Given
		Expect(repo.Save(ctx, base)).To(Succeed())
		approvedAt := base.CreatedAt.Add(time.Hour)
		approved := base.Next(approvedAt)
		approved.Status = request.StatusApproved
		approved.ApprovedBy = &user.User{ID: "manager-1", Name: "Manager Trần", Email: "manager@example.com", Role: user.RoleManager}
		approved.ApprovedAt = &approvedAt

		// When
		Expect(repo.Save(ctx, approved)).To(Succeed())
		got, err := repo.Get(ctx, "req-1")

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal(approved.Title))
		Expect(got.Requester).To(Equal(approved.Requester))
		Expect(got.Amount.Equal(*approved.Amount)).To(BeTrue())
		Expect(got.Attachments).To(HaveLen(1))
		Expect(got.Attachments[0].Size).To(Equal(int64(1024000)))
		Expect(got.Attachments[0].UploadedAt.Equal(base.CreatedAt)).To(BeTrue())
		Expect(got.ApprovedBy.ID).To(Equal("manager-1"))
		Expect(got.ApprovedAt.Equal(approvedAt)).To(BeTrue())
		Expect(got.Version).To(Equal(2))
	})

	It("should keep all requests in one array under the default key", func() {
		Expect(repo.Save(ctx, base)).To(Succeed())
		second := base
		second.ID = "req-2"
		second.CreatedAt = base.CreatedAt.Add(time.Hour)
		Expect(repo.Save(ctx, second)).To(Succeed())

		raw, ok, err := store.GetRaw(ctx, document.DefaultKey)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(string(raw)).To(ContainSubstring(`"attachedFiles"`))
		Expect(string(raw)).To(ContainSubstring(`"createdAt"`))

		all, err := repo.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
		Expect(all[0].ID).To(Equal("req-2"))
	})

	It("should read records written without a version as version 1", func() {
		legacy := `[{"id":"req-9","title":"Nghỉ phép","type":"LEAVE","status":"DRAFT",
			"requester":{"id":"user-1","name":"User Lê","email":"user@example.com","role":"EMPLOYEE"},
			"attachedFiles":[],"createdAt":"2024-01-15T08:00:00Z","updatedAt":"2024-01-15T08:00:00Z"}]`
		Expect(store.PutRaw(ctx, document.DefaultKey, []byte(legacy))).To(Succeed())

		got, err := repo.Get(ctx, "req-9")

		Expect(err).NotTo(HaveOccurred())
		Expect(got.Version).To(Equal(1))
		Expect(got.Amount).To(BeNil())
		Expect(got.Attachments).To(BeEmpty())
	})

	It("should refuse to load a record that breaks the request invariants", func() {
		// Given
		corrupt := `[{"id":"req-7","title":"Mua máy in","type":"PURCHASE","status":"APPROVED",
			"requester":{"id":"user-1","name":"User Lê","email":"user@example.com","role":"EMPLOYEE"},
			"rejectionReason":"short","attachedFiles":[],
			"createdAt":"2024-01-15T08:00:00Z","updatedAt":"2024-01-15T08:00:00Z","version":3}]`
		Expect(store.PutRaw(ctx, document.DefaultKey, []byte(corrupt))).To(Succeed())

		// When
		got, err := repo.Get(ctx, "req-7")
		_, listErr := repo.List(ctx)

		// Then
		Expect(got).To(BeNil())
		Expect(err).To(MatchError(internal.ErrCorruptRequest))
		Expect(internal.IsValidationError(err)).To(BeFalse())
		Expect(listErr).To(MatchError(internal.ErrCorruptRequest))
	})

	It("should keep an empty attachment list distinct from a missing one", func() {
		// Given
		empty := base
		empty.Attachments = []request.AttachedFile{}
		missing := base
		missing.ID = "req-2"
		missing.Attachments = nil
		Expect(repo.Save(ctx, empty)).To(Succeed())
		Expect(repo.Save(ctx, missing)).To(Succeed())

		// When
		gotEmpty, err := repo.Get(ctx, "req-1")
		Expect(err).NotTo(HaveOccurred())
		gotMissing, err := repo.Get(ctx, "req-2")
		Expect(err).NotTo(HaveOccurred())

		// Then
		Expect(gotEmpty.Attachments).NotTo(BeNil())
		Expect(gotEmpty.Attachments).To(BeEmpty())
		Expect(gotMissing.Attachments).To(BeNil())
	})

	It("should reject stale writes", func() {
		Expect(repo.Save(ctx, base)).To(Succeed())
		next := base.Next(time.Now())
		Expect(repo.Save(ctx, next)).To(Succeed())

		Expect(repo.Save(ctx, next)).To(MatchError(internal.ErrVersionConflict))
	})

	It("should remove a request", func() {
		Expect(repo.Save(ctx, base)).To(Succeed())

		removed, err := repo.Remove(ctx, "req-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeTrue())

		got, err := repo.Get(ctx, "req-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})
