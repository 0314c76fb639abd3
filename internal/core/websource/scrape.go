package websource

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const maxPageBytes = 4 << 20

// Scraper lists document links found on an HTML page.
type Scraper struct {
	client *resty.Client
}

func NewScraper(client *resty.Client) *Scraper {
	return &Scraper{client: client}
}

// ScrapePage returns the absolute document URLs linked from pageURL, in page
// order without repeats.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	body, err := get(ctx, s.client, pageURL, nil, maxPageBytes)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if looksLikeDocument(abs.String()) {
			links = append(links, abs.String())
		}
	})
	return dedupe(links), nil
}
