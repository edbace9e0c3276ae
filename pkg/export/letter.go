package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Letter is the content of a formal response letter, already composed.
type Letter struct {
	HeaderLines []string
	DateLine    string
	Reference   string
	Recipient   []string
	// Paragraphs are printed before the table, Closing after it.
	Paragraphs []Paragraph
	Table      Table
	Closing    []Paragraph
	Motto      string
	Signatures []Signature
}

// Paragraph is an optionally numbered block of text with an optional bullet list.
type Paragraph struct {
	Number  string
	Text    string
	Bullets []string
}

// Table is a bordered grid. Widths are fractions of the printable width.
type Table struct {
	Headers []string
	Widths  []float64
	Rows    [][]string
}

// Signature is one signature block.
type Signature struct {
	Name  string
	Lines []string
}

// LetterRenderer draws letters on US letter paper, portrait.
type LetterRenderer struct{}

// NewLetterRenderer constructs a renderer.
func NewLetterRenderer() *LetterRenderer {
	return &LetterRenderer{}
}

const (
	marginSide = 25.0
	marginTop  = 20.0
	lineHeight = 5.5
)

// Render produces the PDF bytes for letter.
func (r *LetterRenderer) Render(letter Letter) ([]byte, error) {
	if len(letter.Table.Headers) == 0 {
		return nil, fmt.Errorf("letter requires a results table")
	}
	if len(letter.Table.Widths) != len(letter.Table.Headers) {
		return nil, fmt.Errorf("letter table has %d headers and %d widths", len(letter.Table.Headers), len(letter.Table.Widths))
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	width := pageWidth - 2*marginSide

	pdf.SetFont("Times", "B", 11)
	for _, line := range letter.HeaderLines {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(0, lineHeight, tr(letter.DateLine), "", 1, "R", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Times", "B", 11)
	pdf.CellFormat(0, lineHeight, tr(letter.Reference), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, line := range letter.Recipient {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Times", "", 11)
	for _, p := range letter.Paragraphs {
		writeParagraph(pdf, tr, p)
	}

	writeTable(pdf, tr, letter.Table, width)
	pdf.Ln(4)

	pdf.SetFont("Times", "", 11)
	for _, p := range letter.Closing {
		writeParagraph(pdf, tr, p)
	}

	if letter.Motto != "" {
		pdf.Ln(6)
		pdf.SetFont("Times", "B", 11)
		pdf.CellFormat(0, lineHeight, tr(letter.Motto), "", 1, "C", false, 0, "")
	}

	if n := len(letter.Signatures); n > 0 {
		pdf.Ln(18)
		blockWidth := width / float64(n)
		top := pdf.GetY()
		for i, sig := range letter.Signatures {
			x := marginSide + float64(i)*blockWidth
			pdf.Line(x+10, top, x+blockWidth-10, top)
			pdf.SetXY(x, top+1)
			pdf.SetFont("Times", "B", 10)
			pdf.CellFormat(blockWidth, lineHeight, tr(sig.Name), "", 2, "C", false, 0, "")
			pdf.SetFont("Times", "", 10)
			for _, line := range sig.Lines {
				pdf.CellFormat(blockWidth, lineHeight, tr(line), "", 2, "C", false, 0, "")
			}
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render letter: %w", err)
	}
	return buf.Bytes(), nil
}

func writeParagraph(pdf *gofpdf.Fpdf, tr func(string) string, p Paragraph) {
	text := p.Text
	if p.Number != "" {
		text = p.Number + " " + text
	}
	pdf.MultiCell(0, lineHeight, tr(text), "", "J", false)
	for _, bullet := range p.Bullets {
		pdf.SetX(marginSide + 8)
		pdf.MultiCell(0, lineHeight, tr("- "+bullet), "", "L", false)
	}
	pdf.Ln(2)
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, table Table, width float64) {
	widths := make([]float64, len(table.Widths))
	for i, w := range table.Widths {
		widths[i] = w * width
	}

	pdf.SetFont("Times", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range table.Headers {
		pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Times", "", 9)
	for _, row := range table.Rows {
		height := 0.0
		for i, cell := range row {
			lines := pdf.SplitLines([]byte(tr(cell)), widths[i]-2)
			if h := float64(len(lines)) * lineHeight; h > height {
				height = h
			}
		}
		if height == 0 {
			height = lineHeight
		}
		x, y := pdf.GetXY()
		for i, cell := range row {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.SetXY(x+1, y)
			pdf.MultiCell(widths[i]-2, lineHeight, tr(cell), "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(marginSide, y+height)
	}
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// SpanishLongDate formats t as "05 de mayo del 2024".
func SpanishLongDate(t time.Time) string {
	return fmt.Sprintf("%02d de %s del %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// SafeFilename turns a response number into a PDF file name.
func SafeFilename(number string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(number) + ".pdf"
}
