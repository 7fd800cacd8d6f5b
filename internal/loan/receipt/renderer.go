package receipt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 15.0
	lineHeight   = 8.0
	labelWidth   = 60.0
	cardAspect   = 85.6 / 53.98 // ID-1 card
	internalNote = "INTERNAL COPY - contains identity documents. Do not send to the applicant."
)

// ErrRenderFailed wraps PDF generation failures.
var ErrRenderFailed = errors.New("RECEIPT_RENDER_FAILED")

// Branding is printed in the receipt header and footer.
type Branding struct {
	CompanyName string
	Tagline     string
	Contact     string
}

func DefaultBranding() Branding {
	return Branding{
		CompanyName: "GFN Microfinance",
		Tagline:     "Loan Application Receipt",
		Contact:     "Questions? Message us on WhatsApp.",
	}
}

// Document is a rendered receipt.
type Document struct {
	FileName string
	Pages    int
	Data     []byte
}

// Renderer lays receipts out on A4 pages, breaking onto new pages as content requires.
type Renderer struct {
	branding Branding
}

func NewRenderer(branding Branding) *Renderer {
	return &Renderer{branding: branding}
}

func (r *Renderer) RenderPublic(receipt PublicReceipt) (Document, error) {
	pdf := r.newDocument(receipt)
	r.writeBody(pdf, receipt)
	return r.finish(pdf, receipt.ReceiptNumber)
}

func (r *Renderer) RenderInternal(receipt InternalReceipt) (Document, error) {
	pdf := r.newDocument(receipt.Public)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(180, 30, 30)
	pdf.MultiCell(0, 6, tr(internalNote), "1", "C", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	r.writeBody(pdf, receipt.Public)

	pdf.SetFont("Helvetica", "", 11)
	r.row(pdf, tr, "Record ID", receipt.RecordID)
	nin := receipt.NIN
	if nin == "" {
		nin = "Not provided (verified by ID scan)"
	}
	r.row(pdf, tr, "National ID number", nin)

	r.writeImage(pdf, tr, "ID card - front", "front", receipt.FrontImage)
	r.writeImage(pdf, tr, "ID card - back", "back", receipt.BackImage)

	return r.finish(pdf, receipt.Public.ReceiptNumber)
}

func (r *Renderer) newDocument(receipt PublicReceipt) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+5)
	pdf.SetTitle(fmt.Sprintf("%s %s", r.branding.Tagline, receipt.ReceiptNumber), true)
	pdf.SetAuthor(r.branding.CompanyName, true)
	pdf.SetCreationDate(receipt.IssuedAt)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, tr(r.branding.CompanyName), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, tr(r.branding.Tagline), "B", 1, "L", false, 0, "")
		pdf.Ln(6)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, tr(r.branding.Contact), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()
	return pdf
}

func (r *Renderer) writeBody(pdf *fpdf.Fpdf, receipt PublicReceipt) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, lineHeight, tr("Receipt "+receipt.ReceiptNumber), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	r.row(pdf, tr, "Date", receipt.IssuedAt.Format("02 Jan 2006 15:04 MST"))
	pdf.Ln(3)

	r.section(pdf, tr, "Applicant")
	r.row(pdf, tr, "Name", receipt.ApplicantName)
	r.row(pdf, tr, "Phone", receipt.Phone)
	r.row(pdf, tr, "Email", receipt.Email)
	pdf.Ln(3)

	r.section(pdf, tr, "Loan")
	r.row(pdf, tr, "Amount", FormatMoney(receipt.Currency, receipt.Amount))
	r.row(pdf, tr, "Term", receipt.TermLabel)
	r.row(pdf, tr, "Interest", fmt.Sprintf("%d%% (%s)", receipt.InterestPercent, FormatMoney(receipt.Currency, receipt.InterestAmount)))
	pdf.SetFont("Helvetica", "B", 11)
	r.row(pdf, tr, "Total repayment", FormatMoney(receipt.Currency, receipt.TotalRepayment))
	pdf.SetFont("Helvetica", "", 11)
	r.row(pdf, tr, "Due date", receipt.DueDate.Format("02 Jan 2006"))
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, tr("Keep this receipt. Your application will be reviewed and a loan officer will contact you on the phone number above."), "", "L", false)
	pdf.Ln(3)
}

func (r *Renderer) section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(235, 240, 235)
	pdf.CellFormat(0, lineHeight, tr(title), "", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func (r *Renderer) row(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(labelWidth, lineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
}

func (r *Renderer) writeImage(pdf *fpdf.Fpdf, tr func(string) string, title, name string, data []byte) {
	if len(data) == 0 {
		return
	}

	info := pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(data))
	if pdf.Err() {
		return
	}

	left, _, right, bottom := pdf.GetMargins()
	pageW, pageH := pdf.GetPageSize()
	w := pageW - left - right
	h := w / cardAspect
	if info != nil && info.Width() > 0 {
		h = w * info.Height() / info.Width()
	}
	if maxH := pageH / 2; h > maxH {
		w, h = w*maxH/h, maxH
	}

	// Keep the caption and its image on the same page.
	if pdf.GetY()+lineHeight+h > pageH-bottom-5 {
		pdf.AddPage()
	}
	r.section(pdf, tr, title)
	pdf.ImageOptions(name, left, pdf.GetY(), w, h, true, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	pdf.Ln(4)
}

func (r *Renderer) finish(pdf *fpdf.Fpdf, receiptNumber string) (Document, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrRenderFailed, receiptNumber, err)
	}
	return Document{
		FileName: FileName(receiptNumber),
		Pages:    pdf.PageCount(),
		Data:     buf.Bytes(),
	}, nil
}
