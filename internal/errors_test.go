package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("matches sentinels through wrapping and details", func() {
		// Given
		err := fmt.Errorf("load: %w", internal.ErrRequestNotFound.WithDetails(map[string]string{"request_id": "req-9"}))

		// Then
		Expect(errors.Is(err, internal.ErrRequestNotFound)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrAttachmentNotFound)).To(BeFalse())
		Expect(internal.IsNotFoundError(err)).To(BeTrue())
		Expect(internal.IsStateError(err)).To(BeFalse())
	})

	It("leaves the sentinel untouched when adding details or a cause", func() {
		cause := errors.New("connection refused")
		wrapped := internal.ErrFinanceHandoffFailed.WithCause(cause)

		Expect(internal.ErrFinanceHandoffFailed.Cause).To(BeNil())
		Expect(errors.Is(wrapped, cause)).To(BeTrue())
		Expect(wrapped.Error()).To(Equal("finance handoff failed: connection refused"))
		Expect(wrapped.StatusCode).To(Equal(http.StatusBadGateway))
	})

	It("uses the first field message for validation errors", func() {
		err := internal.NewValidationFieldError("reason", "rejection reason is too short", internal.ErrCodeInvalidRejectionReason)

		Expect(err.Error()).To(Equal("rejection reason is too short"))
		Expect(err.Code).To(Equal(internal.ErrCodeValidationFailed))
		Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(internal.IsValidationError(err)).To(BeTrue())
	})

	It("joins several field messages in the detailed message", func() {
		err := internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).WithDetails(internal.ValidationErrors{
			Errors: []internal.ValidationError{
				{Field: "title", Message: "title is required", Code: string(internal.ErrCodeMissingField)},
				{Field: "amount", Message: "amount must be positive", Code: string(internal.ErrCodeInvalidAmount)},
			},
		})

		Expect(err.GetDetailedMessage()).To(Equal("title is required; amount must be positive"))
	})

	DescribeTable("maps constructors to status codes",
		func(err *internal.AppError, status int, check func(error) bool) {
			Expect(err.StatusCode).To(Equal(status))
			Expect(check(err)).To(BeTrue())
		},
		Entry("state", internal.ErrCannotSubmitRequest, http.StatusConflict, internal.IsStateError),
		Entry("conflict", internal.ErrVersionConflict, http.StatusConflict, internal.IsConflictError),
		Entry("forbidden", internal.ErrUnauthorizedAccess, http.StatusForbidden, internal.IsForbiddenError),
		Entry("not found", internal.ErrAttachmentNotFound, http.StatusNotFound, internal.IsNotFoundError),
	)

	It("renders the error envelope without the cause", func() {
		status, body := internal.NewInternalError("something went wrong", errors.New("secret dsn")).ToHTTPResponse()
		Expect(status).To(Equal(http.StatusInternalServerError))

		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{"error":{"type":"INTERNAL_ERROR","code":"INTERNAL_ERROR","message":"something went wrong"}}`))
	})
})
