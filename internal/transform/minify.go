package transform

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

// Minifier minifies text of a given mime type.
type Minifier interface {
	Minify(mime, text string) (string, error)
}

type tdewolffMinifier struct {
	m *minify.M
}

// NewMinifier returns a JavaScript and CSS minifier.
func NewMinifier() Minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return tdewolffMinifier{m: m}
}

func (t tdewolffMinifier) Minify(mime, text string) (string, error) {
	return t.m.String(mime, text)
}
