package piece

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the pieces available to the builder.
type Registry struct {
	mu     sync.RWMutex
	pieces map[string]*Piece
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pieces: make(map[string]*Piece)}
}

// Register validates p and adds it. Re-registering a piece replaces it unless
// the new version is older.
func (r *Registry) Register(p *Piece) error {
	if p == nil {
		return fmt.Errorf("%w: piece is required", ErrInvalidPiece)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pieces[p.Name]; ok {
		existingV, _ := ParseSemver(existing.Version)
		newV, _ := ParseSemver(p.Version)
		if newV.Compare(existingV) < 0 {
			return fmt.Errorf("%w: cannot downgrade piece %q from %s to %s", ErrInvalidPiece, p.Name, existing.Version, p.Version)
		}
	}
	r.pieces[p.Name] = p
	return nil
}

// MustRegister is like Register but panics on error. Intended for built-in
// pieces wired at startup.
func (r *Registry) MustRegister(pieces ...*Piece) {
	for _, p := range pieces {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a piece by name.
func (r *Registry) Get(name string) (*Piece, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pieces[name]
	return p, ok
}

// List returns all pieces sorted by name.
func (r *Registry) List() []*Piece {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Piece, 0, len(r.pieces))
	for _, p := range r.pieces {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
