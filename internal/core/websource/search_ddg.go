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

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearch scrapes the HTML results page. It needs no credentials.
type DuckDuckGoSearch struct {
	client   *resty.Client
	endpoint string
}

func NewDuckDuckGoSearch(client *resty.Client, endpoint string) *DuckDuckGoSearch {
	if endpoint == "" {
		endpoint = ddgEndpoint
	}
	return &DuckDuckGoSearch{client: client, endpoint: endpoint}
}

func (d *DuckDuckGoSearch) Name() string { return "duckduckgo" }

func (d *DuckDuckGoSearch) Search(ctx context.Context, query string, limit int) ([]string, error) {
	body, err := get(ctx, d.client, d.endpoint, map[string]string{"q": query}, maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search %q: %w", query, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo results: %w", err)
	}

	var links []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if link := unwrapRedirect(href); link != "" {
			links = append(links, link)
		}
		return len(links) < limit
	})
	return links, nil
}

// unwrapRedirect resolves "//duckduckgo.com/l/?uddg=<target>" result links.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.String()
	}
	return ""
}
