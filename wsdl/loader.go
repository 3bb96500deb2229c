package wsdl

import (
	"context"
	"fmt"
)

// DefaultMaxImportDepth bounds how deep wsdl:import and xsd:import chains are
// followed.
const DefaultMaxImportDepth = 8

// Loader fetches a descriptor and everything it imports and parses the result
// into a Definition.
type Loader struct {
	fetcher  Fetcher
	maxDepth int
}

// NewLoader creates a Loader using f to retrieve documents.
func NewLoader(f Fetcher) *Loader {
	return &Loader{fetcher: f, maxDepth: DefaultMaxImportDepth}
}

// Load retrieves and parses the descriptor at locator.
func (l *Loader) Load(ctx context.Context, locator string) (*Definition, error) {
	p := &parser{def: newDefinition()}
	seen := map[string]bool{}

	type pending struct {
		location string
		depth    int
	}
	queue := []pending{{location: locator}}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next.location] {
			continue
		}
		seen[next.location] = true

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, next.location, err)
		}
		data, err := l.fetcher.Fetch(ctx, next.location)
		if err != nil {
			return nil, err
		}
		imports, err := p.addDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", next.location, err)
		}
		if next.depth >= l.maxDepth {
			continue
		}
		for _, ref := range imports {
			loc := resolveLocation(next.location, ref)
			if isLocalPath(loc) && !isLocalPath(next.location) {
				return nil, fmt.Errorf("%w: %s: remote document imports local %s", ErrFetch, next.location, loc)
			}
			queue = append(queue, pending{location: loc, depth: next.depth + 1})
		}
	}
	return p.def, nil
}

// LoadCatalog loads the descriptor at locator and selects its catalog.
func (l *Loader) LoadCatalog(ctx context.Context, locator string) (*Catalog, error) {
	def, err := l.Load(ctx, locator)
	if err != nil {
		return nil, err
	}
	return NewCatalog(locator, def)
}
