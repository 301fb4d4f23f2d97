package finance

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExporterAPI interface {
	Export(ctx context.Context, w io.Writer) (int, error)
}

type ResenderAPI interface {
	Resend(ctx context.Context) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Exporter ExporterAPI
	// Resender is nil when no finance webhook is configured.
	Resender ResenderAPI
}

func NewHandler(exporter ExporterAPI, resender ResenderAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Exporter:    exporter,
		Resender:    resender,
	}
}

// Export handles GET /finance/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := h.Exporter.Export(r.Context(), &buf)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	name := "forwarded-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.Header().Set("X-Row-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("Export: write failed", "error", err)
	}
}

// Resend handles POST /finance/resend
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	if h.Resender == nil {
		h.WriteError(w, http.StatusServiceUnavailable, "finance webhook is not configured")
		return
	}

	queued, err := h.Resender.Resend(r.Context())
	if errors.Is(err, ErrQueueFull) {
		h.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}
