package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFExtractor reads text page by page. A PDF that cannot be opened gets one
// repair pass through pdfcpu before it is given up on.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, _ string, maxUnits int) string {
	text, err := extractPages(ctx, data, maxUnits)
	if err == nil {
		return text
	}
	log.Printf("PDFExtractor: open failed, attempting repair: %v", err)

	repaired, rerr := repairPDF(data)
	if rerr != nil {
		log.Printf("PDFExtractor: repair failed: %v", rerr)
		return ""
	}
	text, err = extractPages(ctx, repaired, maxUnits)
	if err != nil {
		log.Printf("PDFExtractor: repaired document still unreadable: %v", err)
		return ""
	}
	return text
}

// extractPages fails only when the document as a whole cannot be decoded.
func extractPages(ctx context.Context, data []byte, maxUnits int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf decode panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := r.NumPage()
	if maxUnits > 0 && pages > maxUnits {
		log.Printf("PDFExtractor: document has %d pages, reading first %d", pages, maxUnits)
		pages = maxUnits
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if ctx.Err() != nil {
			break
		}
		if t := pageText(r, i); t != "" {
			b.WriteString(t)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// pageText returns "" for a page that fails to decode.
func pageText(r *pdf.Reader, i int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("PDFExtractor: page %d panicked: %v", i, rec)
			text = ""
		}
	}()

	page := r.Page(i)
	if page.V.IsNull() {
		return ""
	}

	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		var b strings.Builder
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
		return b.String()
	}

	plain, err := page.GetPlainText(nil)
	if err != nil {
		log.Printf("PDFExtractor: page %d: %v", i, err)
		return ""
	}
	return plain
}

// repairPDF rewrites data through pdfcpu's optimizer in relaxed validation
// mode, which fixes broken xref tables and similar damage.
func repairPDF(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return out.Bytes(), nil
}
