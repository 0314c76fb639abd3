package websource

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// The Custom Search API serves at most 10 results per call.
const googlePageSize = 10

// GoogleSearch queries a Programmable Search Engine.
type GoogleSearch struct {
	svc      *customsearch.Service
	engineID string
}

func NewGoogleSearch(ctx context.Context, apiKey, engineID string, opts ...option.ClientOption) (*GoogleSearch, error) {
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("google search needs an api key and engine id")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("customsearch client: %w", err)
	}
	return &GoogleSearch{svc: svc, engineID: engineID}, nil
}

func (g *GoogleSearch) Name() string { return "google" }

func (g *GoogleSearch) Search(ctx context.Context, query string, limit int) ([]string, error) {
	var links []string
	for start := 1; len(links) < limit; start += googlePageSize {
		num := min(googlePageSize, limit-len(links))
		res, err := g.svc.Cse.List().
			Cx(g.engineID).
			Q(query).
			Num(int64(num)).
			Start(int64(start)).
			Context(ctx).
			Do()
		if err != nil {
			if len(links) > 0 {
				break
			}
			return nil, fmt.Errorf("google search %q: %w", query, err)
		}
		for _, item := range res.Items {
			links = append(links, item.Link)
		}
		if len(res.Items) < num {
			break
		}
	}
	return links, nil
}
