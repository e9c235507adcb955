package assets

import (
	"strings"
)

// BundleSeparator joins member basenames in a bundle's publish name.
const BundleSeparator = "+"

// Request identifies one publish unit: a single asset or an ordered bundle.
type Request struct {
	Paths  []string          `json:"paths"`
	Bundle bool              `json:"bundle,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Single builds a request for one asset path.
func Single(path string) Request {
	return Request{Paths: []string{path}}
}

// NewBundle builds a bundle request. Member order is preserved.
func NewBundle(paths ...string) Request {
	return Request{Paths: append([]string(nil), paths...), Bundle: true}
}

// IsBundle reports whether the request was given as a bundle.
func (r Request) IsBundle() bool {
	return r.Bundle
}

// Identity returns a normalized key used to deduplicate requests.
func (r Request) Identity() string {
	parts := make([]string, len(r.Paths))
	for i, p := range r.Paths {
		parts[i] = strings.TrimSpace(p)
	}
	joined := strings.Join(parts, ",")
	if r.Bundle {
		return "[" + joined + "]"
	}
	return joined
}

// String renders the request for logs and tables.
func (r Request) String() string {
	return strings.Join(r.Paths, ",")
}
