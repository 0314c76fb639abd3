package ingestion_engine

import (
	"bytes"
	"context"
	"log"
	"strings"

	"code.sajari.com/docconv"
)

// DocconvExtractor handles every non-PDF document type through sajari/docconv.
// docconv separates pages with form feeds where the format has them.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, contentType string, maxUnits int) string {
	if contentType == "text/plain" {
		return limitUnits(string(data), maxUnits)
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		log.Printf("docconv: extraction failed for content type '%s': %v", contentType, err)
		return ""
	}
	if err := ctx.Err(); err != nil {
		log.Printf("docconv: context cancelled after extraction: %v", err)
		return ""
	}
	if res.Body == "" {
		log.Printf("docconv: extracted empty text for content type '%s'", contentType)
		return ""
	}
	return limitUnits(res.Body, maxUnits)
}

// limitUnits keeps the first maxUnits form-feed separated pages.
func limitUnits(text string, maxUnits int) string {
	units := strings.Split(text, "\f")
	if maxUnits > 0 && len(units) > maxUnits {
		units = units[:maxUnits]
	}
	return strings.TrimSpace(strings.Join(units, "\n"))
}
