package ingestion_engine

import (
	"context"
	"mime"
	"slices"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Examcraft/internal/core"
)

const mimePDF = "application/pdf"

// supportedTypes are the document types accepted for ingestion.
var supportedTypes = []string{
	mimePDF,
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"application/rtf",
	"text/rtf",
	"text/plain",
}

// ResolveContentType prefers the declared type. The file extension decides
// when the declared type is missing, generic or not one we can ingest, as
// with servers that label PDFs application/force-download.
func ResolveContentType(filename, declared string) string {
	ct := declared
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		ct = mt
	}
	if SupportedContentType(ct) {
		return ct
	}
	if byExt := docconv.MimeTypeByExtension(filename); SupportedContentType(byExt) || ct == "" || isGeneric(ct) {
		return byExt
	}
	return ct
}

func isGeneric(ct string) bool {
	return ct == "application/octet-stream" || ct == "binary/octet-stream"
}

// SupportedContentType reports whether ct can be ingested.
func SupportedContentType(ct string) bool {
	return slices.Contains(supportedTypes, ct)
}

var _ core.TextExtractor = (*RoutingExtractor)(nil)

// RoutingExtractor picks the PDF or docconv extractor by content type and
// normalises line endings.
type RoutingExtractor struct {
	pdf   core.TextExtractor
	other core.TextExtractor
}

func NewRoutingExtractor(pdf, other core.TextExtractor) *RoutingExtractor {
	return &RoutingExtractor{pdf: pdf, other: other}
}

func (e *RoutingExtractor) Extract(ctx context.Context, data []byte, contentType string, maxUnits int) string {
	if len(data) == 0 {
		return ""
	}
	var text string
	if contentType == mimePDF {
		text = e.pdf.Extract(ctx, data, contentType, maxUnits)
	} else {
		text = e.other.Extract(ctx, data, contentType, maxUnits)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
