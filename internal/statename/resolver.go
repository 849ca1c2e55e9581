// Package statename maps two-letter state codes to the full names used by
// boundary datasets that store ADM1NAME instead of a short code.
package statename

// DefaultNames is the built-in code to name mapping.
var DefaultNames = map[string]string{
	"CA": "California",
	"NY": "New York",
	"TX": "Texas",
}

// Resolver looks up full state names. The zero value resolves every code
// to itself.
type Resolver struct {
	names map[string]string
}

// New returns a Resolver over a copy of names.
func New(names map[string]string) *Resolver {
	m := make(map[string]string, len(names))
	for k, v := range names {
		m[k] = v
	}
	return &Resolver{names: m}
}

// NewDefault returns a Resolver over DefaultNames.
func NewDefault() *Resolver {
	return New(DefaultNames)
}

// With returns a new Resolver whose mapping is r's mapping overlaid with extra.
func (r *Resolver) With(extra map[string]string) *Resolver {
	merged := New(r.names)
	for k, v := range extra {
		merged.names[k] = v
	}
	return merged
}

// Resolve returns the full name for code, or code itself when unknown.
// Passing unknown codes through lets the filter match datasets whose
// ADM1NAME already holds the short code.
func (r *Resolver) Resolve(code string) string {
	if name, ok := r.names[code]; ok {
		return name
	}
	return code
}
