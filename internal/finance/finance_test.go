package finance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/finance"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/request/memory"
	"github.com/frahmantamala/expense-approval/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestFinance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Finance Suite")
}

var (
	employee = user.User{ID: "user-1", Name: "User Lê", Email: "user@example.com", Role: user.RoleEmployee}
	manager  = user.User{ID: "manager-1", Name: "Manager Trần", Email: "manager@example.com", Role: user.RoleManager}
	decided  = time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC)
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func storedRequest(id string, status request.Status) request.ApprovalRequest {
	amount := decimal.NewFromInt(15000000)
	req := request.ApprovalRequest{
		ID:        id,
		Title:     "Yêu cầu chi phí đi công tác Hà Nội",
		Type:      request.TypeExpense,
		Status:    status,
		Requester: employee,
		Amount:    &amount,
		Currency:  "VND",
		CreatedAt: decided.Add(-24 * time.Hour),
		UpdatedAt: decided,
		Version:   1,
	}
	if status == request.StatusForwarded {
		approver := manager
		at := decided
		req.ApprovedBy = &approver
		req.ApprovedAt = &at
	}
	return req
}

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []finance.Payload
	apiKeys  []string
	hits     atomic.Int32
	statuses []int
}

func (rec *webhookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(rec.hits.Add(1))

	var p finance.Payload
	_ = json.NewDecoder(r.Body).Decode(&p)
	rec.mu.Lock()
	rec.payloads = append(rec.payloads, p)
	rec.apiKeys = append(rec.apiKeys, r.Header.Get("X-API-Key"))
	rec.mu.Unlock()

	status := http.StatusOK
	if n <= len(rec.statuses) {
		status = rec.statuses[n-1]
	}
	w.WriteHeader(status)
}

func (rec *webhookRecorder) received() []finance.Payload {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]finance.Payload(nil), rec.payloads...)
}

var _ = Describe("WebhookClient", func() {
	var (
		ctx      context.Context
		recorder *webhookRecorder
		server   *httptest.Server
		client   *finance.WebhookClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		recorder = &webhookRecorder{}
		server = httptest.NewServer(recorder)
		client = finance.NewWebhookClient(server.URL, "secret-key", time.Second, 2, silentLogger()).
			WithBackoff(time.Millisecond)
	})

	AfterEach(func() {
		server.Close()
	})

	It("should post the payload with the api key", func() {
		// Given
		payload := finance.NewPayload(storedRequest("req-1", request.StatusForwarded))

		// When
		err := client.Send(ctx, payload)

		// Then
		Expect(err).NotTo(HaveOccurred())
		got := recorder.received()
		Expect(got).To(HaveLen(1))
		Expect(got[0].RequestID).To(Equal("req-1"))
		Expect(got[0].ApprovedBy).To(Equal("manager@example.com"))
		Expect(got[0].Currency).To(Equal("VND"))
		Expect(got[0].Amount.Equal(decimal.NewFromInt(15000000))).To(BeTrue())
		Expect(got[0].ApprovedAt.Equal(decided)).To(BeTrue())
		Expect(recorder.apiKeys[0]).To(Equal("secret-key"))
	})

	It("should retry server errors until one succeeds", func() {
		recorder.statuses = []int{http.StatusServiceUnavailable, http.StatusBadGateway}

		err := client.Send(ctx, finance.NewPayload(storedRequest("req-1", request.StatusForwarded)))

		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.hits.Load()).To(Equal(int32(3)))
	})

	It("should give up after the configured retries", func() {
		recorder.statuses = []int{500, 500, 500, 500}

		err := client.Send(ctx, finance.NewPayload(storedRequest("req-1", request.StatusForwarded)))

		Expect(err).To(MatchError(internal.ErrFinanceHandoffFailed))
		Expect(recorder.hits.Load()).To(Equal(int32(3)))
	})

	It("should not retry client errors", func() {
		recorder.statuses = []int{http.StatusBadRequest}

		err := client.Send(ctx, finance.NewPayload(storedRequest("req-1", request.StatusForwarded)))

		Expect(err).To(MatchError(internal.ErrFinanceHandoffFailed))
		Expect(err.Error()).To(ContainSubstring("status 400"))
		Expect(recorder.hits.Load()).To(Equal(int32(1)))
	})
})

var _ = Describe("Dispatcher", func() {
	var (
		ctx        context.Context
		recorder   *webhookRecorder
		server     *httptest.Server
		repo       request.Repository
		requests   *request.Service
		dispatcher *finance.Dispatcher
		outcomes   chan error
	)

	BeforeEach(func() {
		ctx = context.Background()
		recorder = &webhookRecorder{}
		server = httptest.NewServer(recorder)
		repo = memory.NewRequestRepository()
		requests = request.NewService(repo, nil, nil, silentLogger())
		outcomes = make(chan error, 10)

		client := finance.NewWebhookClient(server.URL, "", time.Second, 1, silentLogger()).WithBackoff(time.Millisecond)
		dispatcher = finance.NewDispatcher(finance.Config{MaxWorkers: 2, JobQueueSize: 10}, requests, client, silentLogger()).
			OnDone(func(_ finance.Job, err error) { outcomes <- err })
	})

	AfterEach(func() {
		dispatcher.Shutdown()
		server.Close()
	})

	It("should deliver a forwarded request announced on the bus", func() {
		// Given
		Expect(repo.Save(ctx, storedRequest("req-1", request.StatusForwarded))).To(Succeed())
		bus := events.NewEventBus(silentLogger())
		dispatcher.RegisterEventHandlers(bus)
		dispatcher.Start()

		// When
		event := events.NewRequestEvent(events.EventTypeRequestForwarded, "req-1", manager.ID, string(request.StatusForwarded), 1)
		Expect(bus.Publish(ctx, event)).To(Succeed())

		// Then
		Eventually(outcomes).Should(Receive(BeNil()))
		Expect(recorder.received()).To(HaveLen(1))
		Expect(recorder.received()[0].Title).To(Equal("Yêu cầu chi phí đi công tác Hà Nội"))
	})

	It("should skip requests that are not forwarded", func() {
		Expect(repo.Save(ctx, storedRequest("req-2", request.StatusApproved))).To(Succeed())
		dispatcher.Start()

		Expect(dispatcher.Enqueue("req-2")).To(Succeed())

		Eventually(outcomes).Should(Receive(BeNil()))
		Expect(recorder.hits.Load()).To(BeZero())
	})

	It("should report requests that disappeared", func() {
		dispatcher.Start()

		Expect(dispatcher.Enqueue("ghost")).To(Succeed())

		var err error
		Eventually(outcomes).Should(Receive(&err))
		Expect(internal.IsNotFoundError(err)).To(BeTrue())
	})

	It("should resend every forwarded request", func() {
		Expect(repo.Save(ctx, storedRequest("req-1", request.StatusForwarded))).To(Succeed())
		Expect(repo.Save(ctx, storedRequest("req-3", request.StatusForwarded))).To(Succeed())
		Expect(repo.Save(ctx, storedRequest("req-2", request.StatusPending))).To(Succeed())
		dispatcher.Start()

		queued, err := dispatcher.Resend(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(queued).To(Equal(2))
		Eventually(recorder.hits.Load).Should(Equal(int32(2)))
	})

	It("should refuse jobs once the queue is full", func() {
		client := finance.NewWebhookClient(server.URL, "", time.Second, 0, silentLogger())
		small := finance.NewDispatcher(finance.Config{MaxWorkers: 1, JobQueueSize: 1}, requests, client, silentLogger())
		defer small.Shutdown()

		Expect(small.Enqueue("req-1")).To(Succeed())
		Expect(small.Enqueue("req-2")).To(MatchError(finance.ErrQueueFull))
	})

	It("should reject events without a request id", func() {
		event := events.BaseEvent{ID: "evt-1", Type: events.EventTypeRequestForwarded, Data: map[string]interface{}{}}

		Expect(dispatcher.HandleRequestForwarded(ctx, event)).To(HaveOccurred())
	})
})

var _ = Describe("Exporter", func() {
	It("should write forwarded requests to a sheet", func() {
		// Given
		ctx := context.Background()
		repo := memory.NewRequestRepository()
		Expect(repo.Save(ctx, storedRequest("req-1", request.StatusForwarded))).To(Succeed())
		Expect(repo.Save(ctx, storedRequest("req-2", request.StatusPending))).To(Succeed())
		exporter := finance.NewExporter(request.NewService(repo, nil, nil, silentLogger()), nil, silentLogger())

		// When
		var buf bytes.Buffer
		n, err := exporter.Export(ctx, &buf)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		f, err := excelize.OpenReader(&buf)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows(finance.ExportSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0][0]).To(Equal("Request ID"))
		Expect(rows[1][0]).To(Equal("req-1"))
		Expect(rows[1][3]).To(Equal("user@example.com"))
		Expect(rows[1][5]).To(Equal("VND"))
		Expect(rows[1][6]).To(ContainSubstring("15.000.000"))
		Expect(rows[1][7]).To(Equal("manager@example.com"))
		Expect(rows[1][8]).To(Equal("2024-01-16T09:30:00Z"))
	})
})
