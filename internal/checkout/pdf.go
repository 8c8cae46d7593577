// internal/checkout/pdf.go
package checkout

import (
	"bytes"
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"librastore/internal/models"
)

// RenderPDF prints the invoice on one A4 page with a QR code carrying its
// number.
func (s *service) RenderPDF(w io.Writer, inv *models.Invoice) error {
	return renderPDF(w, inv)
}

func renderPDF(w io.Writer, inv *models.Invoice) error {
	qrPNG, err := qrcode.Encode(fmt.Sprintf("FACTURA:%d", inv.Number), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, tr(fmt.Sprintf("Factura %d", inv.Number)))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, tr("Fecha: "+inv.Date.Format("02/01/2006")))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Razón social: "+inv.LegalName))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("DNI: "+inv.NationalID))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Dirección: "+inv.Address))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Email: "+inv.Email))
	pdf.Ln(14)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 15, 40, 40, false, imageOpts, 0, "")

	pdf.SetY(65)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, tr("Título"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Cantidad", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Precio", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, line := range inv.Items {
		pdf.CellFormat(90, 7, tr(line.Book.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, line.Book.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, line.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	total := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 11)
		pdf.CellFormat(145, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, value, "", 1, "R", false, 0, "")
	}
	total("Subtotal", inv.Subtotal.StringFixed(2), false)
	total("IVA 21%", inv.VAT.StringFixed(2), false)
	total("Total", inv.Total.StringFixed(2), true)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice %d: %w", inv.Number, err)
	}
	return nil
}
