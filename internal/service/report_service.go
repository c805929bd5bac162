package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/integrity"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/pkg/config"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/export"
)

var mirrorHeaders = []string{"Employee", "Kind", "Occurred At", "Committed At", "Device", "Derived", "Fingerprint"}

// ReportFile is a rendered export ready to be streamed to the client.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders the punch mirror exports and per-punch receipts
// required for labour inspections.
type ReportService struct {
	events  punchEventStore
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	receipt *export.ReceiptExporter
	signer  *integrity.CodeSigner
	logger  *zap.Logger
	cfg     config.ReportsConfig
}

// NewReportService constructs the service.
func NewReportService(events punchEventStore, signer *integrity.CodeSigner, logger *zap.Logger, cfg config.ReportsConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		events:  events,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		receipt: export.NewReceiptExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Mirror renders the punch mirror for a period as CSV or PDF.
func (s *ReportService) Mirror(ctx context.Context, query dto.MirrorReportQuery, actor *models.JWTClaims) (*ReportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reports are disabled")
	}
	if query.From.IsZero() || query.To.IsZero() || !query.To.After(query.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report period must be a non-empty interval")
	}
	employeeID := query.EmployeeID
	if actor.Role == models.RoleEmployee {
		employeeID = actor.EmployeeID
	}

	records, _, err := s.events.List(ctx, models.TimeEventFilter{
		CompanyID:  actor.CompanyID,
		EmployeeID: employeeID,
		DateFrom:   &query.From,
		DateTo:     &query.To,
		PageSize:   200,
		SortOrder:  "asc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load punches for report")
	}

	dataset := export.Dataset{Headers: mirrorHeaders}
	for _, record := range records {
		derived := "no"
		if record.Derived() {
			derived = "yes"
		}
		device := ""
		if record.DeviceID != nil {
			device = *record.DeviceID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Employee":     record.EmployeeName,
			"Kind":         string(record.Kind),
			"Occurred At":  record.OccurredAt.UTC().Format(time.RFC3339),
			"Committed At": record.CommittedAt.UTC().Format(time.RFC3339),
			"Device":       device,
			"Derived":      derived,
			"Fingerprint":  record.Fingerprint,
		})
	}

	period := fmt.Sprintf("%s-%s", query.From.Format("20060102"), query.To.Format("20060102"))
	switch strings.ToLower(query.Format) {
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportFile{
			Filename:    fmt.Sprintf("punch-mirror-%s.csv", period),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case "pdf":
		title := "Punch Mirror"
		if s.cfg.CompanyName != "" {
			title = s.cfg.CompanyName + " - Punch Mirror"
		}
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportFile{
			Filename:    fmt.Sprintf("punch-mirror-%s.pdf", period),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format: "+query.Format)
	}
}

// Receipt renders a PDF receipt for one punch with a scannable verification
// code.
func (s *ReportService) Receipt(ctx context.Context, eventID string, actor *models.JWTClaims) (*ReportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "punch not found")
	}
	if event.CompanyID != actor.CompanyID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "punch not found")
	}
	if actor.Role == models.RoleEmployee && event.EmployeeID != actor.EmployeeID {
		return nil, appErrors.ErrForbidden
	}

	code, expiresAt, err := s.signer.Issue(event.ID, event.Fingerprint)
	if err != nil {
		return nil, err
	}
	qr, err := integrity.QRCodePNG(code, 256)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render verification qr")
	}

	fields := []export.ReceiptField{
		{Label: "Punch ID", Value: event.ID},
		{Label: "Employee", Value: event.EmployeeID},
		{Label: "Kind", Value: string(event.Kind)},
		{Label: "Occurred At", Value: event.OccurredAt.UTC().Format(time.RFC3339)},
		{Label: "Committed At", Value: event.CommittedAt.UTC().Format(time.RFC3339)},
		{Label: "Fingerprint", Value: event.Fingerprint},
		{Label: "Code Expires", Value: expiresAt.UTC().Format(time.RFC3339)},
	}
	if event.DeviceID != nil {
		fields = append(fields, export.ReceiptField{Label: "Device", Value: *event.DeviceID})
	}

	data, err := s.receipt.Render("Punch Receipt", fields, qr)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &ReportFile{
		Filename:    fmt.Sprintf("punch-receipt-%s.pdf", event.ID),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
