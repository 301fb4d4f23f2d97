package attachment_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/attachment"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAttachment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Attachment Suite")
}

var (
	pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

var _ request.AttachmentStore = (*attachment.Store)(nil)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *attachment.Store
		base  string
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = "mem://localhost/blobs-" + uuid.NewString()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		store, err = attachment.NewStore(ctx, base, 1024, nil, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Put", func() {
		It("should store a PDF and describe it", func() {
			// Given
			data := pdf

			// When
			file, err := store.Put(ctx, "invoice.pdf", data)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(file.ID).NotTo(BeEmpty())
			Expect(file.Name).To(Equal("invoice.pdf"))
			Expect(file.Type).To(Equal("application/pdf"))
			Expect(file.Size).To(Equal(int64(len(data))))
			Expect(file.URL).To(HavePrefix(base))
			Expect(file.URL).To(HaveSuffix(".pdf"))
			Expect(file.UploadedAt.IsZero()).To(BeFalse())
		})

		It("should accept PNG images", func() {
			file, err := store.Put(ctx, "receipt.png", png)

			Expect(err).NotTo(HaveOccurred())
			Expect(file.Type).To(Equal("image/png"))
		})

		It("should share the blob for identical content but issue new ids", func() {
			first, err := store.Put(ctx, "a.pdf", pdf)
			Expect(err).NotTo(HaveOccurred())
			second, err := store.Put(ctx, "b.pdf", pdf)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.URL).To(Equal(first.URL))
			Expect(second.ID).NotTo(Equal(first.ID))
		})

		It("should keep only the base name of the upload", func() {
			file, err := store.Put(ctx, `C:\Users\lan\invoice.pdf`, pdf)

			Expect(err).NotTo(HaveOccurred())
			Expect(file.Name).To(Equal("invoice.pdf"))
		})

		DescribeTable("rejected uploads",
			func(name string, data []byte, message string) {
				_, err := store.Put(ctx, name, data)

				Expect(internal.IsValidationError(err)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring(message))
			},
			Entry("empty file", "empty.pdf", []byte{}, "file is empty"),
			Entry("missing name", " ", pdf, "file name is required"),
			Entry("shell script", "run.sh", []byte("#!/bin/sh\necho hello\n"), "is not allowed"),
			Entry("oversized", "big.pdf", append(append([]byte{}, pdf...), []byte(strings.Repeat("x", 2048))...), "file exceeds 1024 bytes"),
		)
	})

	Describe("Open", func() {
		It("should read back stored content", func() {
			file, err := store.Put(ctx, "invoice.pdf", pdf)
			Expect(err).NotTo(HaveOccurred())

			data, err := store.Open(ctx, file)

			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(pdf))
		})

		It("should refuse locations outside the store", func() {
			_, err := store.Open(ctx, request.AttachedFile{ID: "f-1", URL: "mem://localhost/elsewhere/x.pdf"})

			Expect(err).To(MatchError(internal.ErrAttachmentNotFound))
		})

		It("should report a missing blob", func() {
			_, err := store.Open(ctx, request.AttachedFile{ID: "f-1", URL: base + "/ab/missing.pdf"})

			Expect(err).To(MatchError(internal.ErrAttachmentNotFound))
		})
	})
})
