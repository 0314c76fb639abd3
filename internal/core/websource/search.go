package websource

import (
	"context"
	"errors"
	"log"

	"github.com/markdave123-py/Examcraft/internal/core"
)

// ChainSearch asks each provider in turn; the first one that returns links
// answers the query.
type ChainSearch struct {
	providers []core.SearchProvider
}

func NewChainSearch(providers ...core.SearchProvider) *ChainSearch {
	return &ChainSearch{providers: providers}
}

func (c *ChainSearch) Name() string { return "chain" }

func (c *ChainSearch) Search(ctx context.Context, query string, limit int) ([]string, error) {
	var errs []error
	for _, p := range c.providers {
		links, err := p.Search(ctx, query, limit)
		if err != nil {
			log.Printf("WebSourcer: %s search failed: %v", p.Name(), err)
			errs = append(errs, err)
			continue
		}
		if len(links) > 0 {
			return links, nil
		}
	}
	return nil, errors.Join(errs...)
}
