package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptField is one labelled line on a receipt.
type ReceiptField struct {
	Label string
	Value string
}

// ReceiptExporter renders a single-record receipt with an embedded QR image.
type ReceiptExporter struct{}

// NewReceiptExporter constructs a receipt exporter.
func NewReceiptExporter() *ReceiptExporter {
	return &ReceiptExporter{}
}

// Render produces a PDF receipt. The QR image is optional; when present it is
// expected to be PNG encoded.
func (e *ReceiptExporter) Render(title string, fields []ReceiptField, qrPNG []byte) ([]byte, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("receipt requires at least one field")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	for _, field := range fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 8, field.Label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, field.Value, "", 1, "", false, 0, "")
	}

	if len(qrPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("verification-qr", opts, bytes.NewReader(qrPNG))
		pdf.Ln(6)
		pdf.ImageOptions("verification-qr", 75, pdf.GetY(), 60, 60, false, opts, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
