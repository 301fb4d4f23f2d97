package request_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/request/memory"
	"github.com/frahmantamala/expense-approval/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakeFiles struct {
	count int
	err   error
}

func (f *fakeFiles) Put(_ context.Context, name string, data []byte) (request.AttachedFile, error) {
	if f.err != nil {
		return request.AttachedFile{}, f.err
	}
	f.count++
	return request.AttachedFile{
		ID:         fmt.Sprintf("file-%d", f.count),
		Name:       name,
		URL:        "mem://localhost/blobs/" + name,
		Size:       int64(len(data)),
		Type:       "application/pdf",
		UploadedAt: created,
	}, nil
}

func (f *fakeFiles) Open(_ context.Context, file request.AttachedFile) ([]byte, error) {
	return []byte("content of " + file.Name), nil
}

type failingRepo struct {
	request.Repository
}

func (failingRepo) List(context.Context) ([]request.ApprovalRequest, error) {
	return nil, errors.New("connection reset")
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		repo      *memory.RequestRepository
		files     *fakeFiles
		publisher *recordingPublisher
		service   *request.Service
		clock     time.Time
		ids       int
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = memory.NewRequestRepository()
		files = &fakeFiles{}
		publisher = &recordingPublisher{}
		clock = created
		ids = 0
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = request.NewService(repo, files, publisher, logger).
			WithClock(func() time.Time {
				clock = clock.Add(time.Minute)
				return clock
			}).
			WithIDGenerator(func() string {
				ids++
				return fmt.Sprintf("req-%d", ids)
			})
	})

	createDraft := func() *request.ApprovalRequest {
		req, err := service.CreateDraft(ctx, employee, request.CreateRequestDTO{
			Title:    "Yêu cầu chi phí đi công tác Hà Nội",
			Type:     request.TypeExpense,
			Amount:   amountOf(15000000),
			Currency: "vnd",
		})
		Expect(err).NotTo(HaveOccurred())
		return req
	}

	Describe("CreateDraft", func() {
		It("should store a draft at version 1", func() {
			// When
			req := createDraft()

			// Then
			Expect(req.ID).To(Equal("req-1"))
			Expect(req.Status).To(Equal(request.StatusDraft))
			Expect(req.Version).To(Equal(1))
			Expect(req.Currency).To(Equal("VND"))
			Expect(req.Requester.ID).To(Equal(employee.ID))
			Expect(req.CreatedAt).To(Equal(req.UpdatedAt))

			stored, err := repo.Get(ctx, req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Title).To(Equal(req.Title))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeRequestCreated}))
		})

		It("should create directly as pending when asked to submit", func() {
			req, err := service.CreateDraft(ctx, employee, request.CreateRequestDTO{
				Title:  "Nghỉ phép",
				Type:   request.TypeLeave,
				Submit: true,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(req.Status).To(Equal(request.StatusPending))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeRequestCreated, events.EventTypeRequestSubmitted}))
		})

		It("should reject invalid input without storing anything", func() {
			_, err := service.CreateDraft(ctx, employee, request.CreateRequestDTO{Type: request.TypeExpense})

			Expect(internal.IsValidationError(err)).To(BeTrue())
			all, _ := repo.List(ctx)
			Expect(all).To(BeEmpty())
		})
	})

	Describe("UpdateDraft", func() {
		It("should apply only the provided fields", func() {
			req := createDraft()
			title := "Chi phí công tác Đà Nẵng"
			amount := decimal.NewFromInt(9000000)

			updated, err := service.UpdateDraft(ctx, employee, req.ID, request.UpdateRequestDTO{Title: &title, Amount: &amount})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Title).To(Equal(title))
			Expect(updated.Amount.Equal(amount)).To(BeTrue())
			Expect(updated.Type).To(Equal(request.TypeExpense))
			Expect(updated.Version).To(Equal(2))
			Expect(updated.UpdatedAt).To(BeTemporally(">", req.UpdatedAt))
		})

		It("should return a rejected request to draft", func() {
			// Given
			req := createDraft()
			rejectedAt := clock
			rejected := req.Next(clock)
			rejected.Status = request.StatusRejected
			rejected.RejectedBy = &manager
			rejected.RejectedAt = &rejectedAt
			rejected.RejectionReason = "Thiếu hóa đơn gốc"
			Expect(repo.Save(ctx, rejected)).To(Succeed())
			description := "Bổ sung hóa đơn"

			// When
			updated, err := service.UpdateDraft(ctx, employee, req.ID, request.UpdateRequestDTO{Description: &description})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusDraft))
			Expect(updated.RejectedBy).To(BeNil())
			Expect(updated.RejectedAt).To(BeNil())
			Expect(updated.RejectionReason).To(BeEmpty())
			Expect(updated.Validate()).To(Succeed())
		})

		It("should refuse to edit a pending request", func() {
			req := createDraft()
			_, err := service.Submit(ctx, employee, req.ID)
			Expect(err).NotTo(HaveOccurred())

			title := "changed"
			_, err = service.UpdateDraft(ctx, employee, req.ID, request.UpdateRequestDTO{Title: &title})

			Expect(err).To(MatchError(internal.ErrCannotModifyRequest))
		})

		It("should refuse edits from someone other than the requester", func() {
			req := createDraft()
			title := "changed"

			_, err := service.UpdateDraft(ctx, manager, req.ID, request.UpdateRequestDTO{Title: &title})

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("Submit", func() {
		It("should move a draft to pending", func() {
			req := createDraft()

			submitted, err := service.Submit(ctx, employee, req.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(submitted.Status).To(Equal(request.StatusPending))
			Expect(submitted.Version).To(Equal(2))
			Expect(publisher.types()).To(ContainElement(events.EventTypeRequestSubmitted))
		})

		It("should not submit twice", func() {
			req := createDraft()
			_, err := service.Submit(ctx, employee, req.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Submit(ctx, employee, req.ID)

			Expect(internal.IsStateError(err)).To(BeTrue())
		})

		It("should report unknown ids as not found", func() {
			_, err := service.Submit(ctx, employee, "missing")

			Expect(err).To(MatchError(internal.ErrRequestNotFound))
			Expect(err.Error()).To(Equal("not found"))
		})
	})

	Describe("Delete", func() {
		It("should remove a draft", func() {
			req := createDraft()

			Expect(service.Delete(ctx, employee, req.ID)).To(Succeed())

			_, err := service.Get(ctx, req.ID)
			Expect(internal.IsNotFoundError(err)).To(BeTrue())
			Expect(publisher.types()).To(ContainElement(events.EventTypeRequestDeleted))
		})

		It("should keep submitted requests", func() {
			req := createDraft()
			_, err := service.Submit(ctx, employee, req.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, employee, req.ID)).To(MatchError(internal.ErrCannotDeleteRequest))
		})
	})

	Describe("attachments", func() {
		It("should append and remove files on an editable request", func() {
			req := createDraft()

			withFile, err := service.UploadAttachment(ctx, employee, req.ID, "invoice.pdf", []byte("%PDF-1.4"))
			Expect(err).NotTo(HaveOccurred())
			Expect(withFile.Attachments).To(HaveLen(1))
			Expect(withFile.Attachments[0].Name).To(Equal("invoice.pdf"))

			withoutFile, err := service.RemoveAttachment(ctx, employee, req.ID, withFile.Attachments[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(withoutFile.Attachments).To(BeEmpty())
			Expect(withoutFile.Version).To(Equal(3))
		})

		It("should surface store rejections", func() {
			req := createDraft()
			files.err = internal.NewValidationError("file type is not allowed", internal.ErrCodeInvalidAttachment)

			_, err := service.UploadAttachment(ctx, employee, req.ID, "script.sh", []byte("#!/bin/sh"))

			Expect(internal.IsValidationError(err)).To(BeTrue())
		})

		It("should report an unknown attachment", func() {
			req := createDraft()

			_, err := service.RemoveAttachment(ctx, employee, req.ID, "nope")

			Expect(err).To(MatchError(internal.ErrAttachmentNotFound))
		})

		It("should open files for reviewers but not for other employees", func() {
			req := createDraft()
			withFile, err := service.UploadAttachment(ctx, employee, req.ID, "invoice.pdf", []byte("%PDF-1.4"))
			Expect(err).NotTo(HaveOccurred())
			fileID := withFile.Attachments[0].ID

			file, data, err := service.OpenAttachment(ctx, manager, req.ID, fileID)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Name).To(Equal("invoice.pdf"))
			Expect(string(data)).To(Equal("content of invoice.pdf"))

			other := user.User{ID: "user-2", Name: "User Võ", Email: "vo@example.com", Role: user.RoleEmployee}
			_, _, err = service.OpenAttachment(ctx, other, req.ID, fileID)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))

			_, _, err = service.OpenAttachment(ctx, employee, req.ID, "nope")
			Expect(err).To(MatchError(internal.ErrAttachmentNotFound))
		})
	})

	Describe("queries", func() {
		BeforeEach(func() {
			createDraft()
			pending, err := service.CreateDraft(ctx, employee, request.CreateRequestDTO{Title: "Mua laptop", Type: request.TypePurchase, Submit: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.IsPending()).To(BeTrue())
			_, err = service.CreateDraft(ctx, admin, request.CreateRequestDTO{Title: "Khác", Type: request.TypeOther})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should list newest first", func() {
			all, err := service.List(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].ID).To(Equal("req-3"))
			Expect(all[2].ID).To(Equal("req-1"))
		})

		It("should filter by requester, draft and status", func() {
			mine, _ := service.ListByRequester(ctx, employee.ID)
			drafts, _ := service.ListDrafts(ctx, employee.ID)
			pending, _ := service.ListPending(ctx)
			approved, _ := service.ListByStatus(ctx, request.StatusApproved)

			Expect(mine).To(HaveLen(2))
			Expect(drafts).To(HaveLen(1))
			Expect(drafts[0].ID).To(Equal("req-1"))
			Expect(pending).To(HaveLen(1))
			Expect(approved).To(BeEmpty())
		})

		It("should scope lists and reads to what the actor may see", func() {
			own, _ := service.ListForActor(ctx, employee, "")
			everything, _ := service.ListForActor(ctx, finance, "")
			pendingForManager, _ := service.ListForActor(ctx, manager, request.StatusPending)

			Expect(own).To(HaveLen(2))
			Expect(everything).To(HaveLen(3))
			Expect(pendingForManager).To(HaveLen(1))

			_, err := service.GetForActor(ctx, employee, "req-3")
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
			_, err = service.GetForActor(ctx, manager, "req-1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should wrap storage failures", func() {
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			broken := request.NewService(failingRepo{repo}, files, nil, logger)

			_, err := broken.ListPending(ctx)

			Expect(err).To(MatchError(ContainSubstring("connection reset")))
		})
	})
})
