package finance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/pkg/format"
	"github.com/xuri/excelize/v2"
)

const ExportSheet = "Forwarded"

var exportHeader = []interface{}{
	"Request ID", "Title", "Type", "Requester", "Amount", "Currency", "Formatted Amount", "Approved By", "Approved At",
}

type Exporter struct {
	requests  Requests
	formatter *format.Formatter
	logger    *slog.Logger
}

func NewExporter(requests Requests, formatter *format.Formatter, logger *slog.Logger) *Exporter {
	if formatter == nil {
		formatter = format.Default()
	}
	return &Exporter{requests: requests, formatter: formatter, logger: logger}
}

// Export writes every forwarded request as one row of an xlsx workbook and
// returns the number of rows written.
func (e *Exporter) Export(ctx context.Context, w io.Writer) (int, error) {
	reqs, err := e.requests.ListByStatus(ctx, request.StatusForwarded)
	if err != nil {
		return 0, fmt.Errorf("list forwarded requests: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for i, req := range reqs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := e.row(req)
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("write row for %s: %w", req.ID, err)
		}
	}

	if err := f.SetColWidth(ExportSheet, "A", "I", 20); err != nil {
		return 0, fmt.Errorf("size columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info("finance export written", "rows", len(reqs))
	return len(reqs), nil
}

func (e *Exporter) row(req request.ApprovalRequest) []interface{} {
	var amount interface{} = ""
	if req.Amount != nil {
		amount = req.Amount.InexactFloat64()
	}
	approvedBy, approvedAt := "", ""
	if req.ApprovedBy != nil {
		approvedBy = req.ApprovedBy.Email
	}
	if req.ApprovedAt != nil {
		approvedAt = req.ApprovedAt.UTC().Format(time.RFC3339)
	}
	return []interface{}{
		req.ID,
		req.Title,
		string(req.Type),
		req.Requester.Email,
		amount,
		req.Currency,
		e.formatter.Amount(req.Amount, req.Currency),
		approvedBy,
		approvedAt,
	}
}
