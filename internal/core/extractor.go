package core

import "context"

// TextExtractor converts raw document bytes into plain text.
//
// maxUnits bounds the number of pages (or page-like units) read. A unit that
// fails to decode contributes empty text; a document that cannot be decoded
// at all yields "". Implementations never return an error, callers treat
// empty text as the failure signal.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string, maxUnits int) string
}
