package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/pkg/jina"
)

// Jina adapts the Jina search API to Provider, filtered to the catalog host.
type Jina struct {
	client jina.Client
	host   string
}

// NewJina creates the provider.
func NewJina(client jina.Client, host string) *Jina {
	if host == "" {
		host = "swiggy.com"
	}
	return &Jina{client: client, host: host}
}

func (j *Jina) Name() string { return "jina" }

func (j *Jina) Search(ctx context.Context, query string) (*Results, error) {
	resp, err := j.client.Search(ctx, query, jina.WithSiteFilter(j.host))
	if err != nil {
		return nil, eris.Wrap(err, "search: jina")
	}
	links := make([]model.Link, 0, len(resp.Data))
	for _, r := range resp.Data {
		links = append(links, model.Link{Text: r.Title, Href: r.URL})
	}
	return &Results{Links: CatalogLinks(links, j.host), Provider: j.Name()}, nil
}
