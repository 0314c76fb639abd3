package websource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/ingestion_engine"
)

// Document is a fetched remote file.
type Document struct {
	URL         string
	ContentType string
	Data        []byte
}

// Fetcher downloads documents with a size ceiling.
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewHTTPClient is the shared client for fetching, scraping and HTML search.
func NewHTTPClient(userAgent string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", userAgent)
}

func NewFetcher(userAgent string, maxBytes int64, timeout time.Duration) *Fetcher {
	return &Fetcher{client: NewHTTPClient(userAgent, timeout), maxBytes: maxBytes}
}

// Fetch downloads one document. Every failure wraps core.ErrFetchFailed:
// transport errors, non-2xx statuses, non-document content types, bodies
// above the size ceiling and PDFs that do not start with %PDF.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, fetchErr(rawURL, "%v", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fetchErr(rawURL, "status %d", resp.StatusCode())
	}

	ct := ingestion_engine.ResolveContentType(filenameFromURL(rawURL), resp.Header().Get("Content-Type"))
	if !ingestion_engine.SupportedContentType(ct) {
		return nil, fetchErr(rawURL, "unsupported content type %q", ct)
	}

	if n, err := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64); err == nil && n > f.maxBytes {
		return nil, fetchErr(rawURL, "%d bytes exceeds %d", n, f.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fetchErr(rawURL, "read body: %v", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fetchErr(rawURL, "body exceeds %d bytes", f.maxBytes)
	}
	if ct == "application/pdf" && !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, fetchErr(rawURL, "declared pdf but body is not one")
	}

	return &Document{URL: rawURL, ContentType: ct, Data: data}, nil
}

func fetchErr(rawURL, format string, args ...any) error {
	err := fmt.Errorf("%w: %s: %s", core.ErrFetchFailed, rawURL, fmt.Sprintf(format, args...))
	log.Printf("WebSourcer: %v", err)
	return err
}

// get reads a small page body, used for scraping and HTML search.
func get(ctx context.Context, client *resty.Client, rawURL string, query map[string]string, limit int64) ([]byte, error) {
	req := client.R().SetContext(ctx).SetDoNotParseResponse(true)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		return nil, &statusError{url: rawURL, code: resp.StatusCode()}
	}
	return io.ReadAll(io.LimitReader(body, limit))
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return "GET " + e.url + ": status " + strconv.Itoa(e.code)
}
