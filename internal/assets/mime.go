package assets

import (
	"path"
	"strings"
)

// Kind groups mime types by the transform they receive.
type Kind string

const (
	KindScript     Kind = "script"
	KindStylesheet Kind = "stylesheet"
	KindPNG        Kind = "png"
	KindJPEG       Kind = "jpeg"
	KindImage      Kind = "image"
	KindIcon       Kind = "icon"
	KindFont       Kind = "font"
)

// Type is the resolved mime type of an asset.
type Type struct {
	Mime string
	Kind Kind
}

// Bundleable reports whether several assets of this type may be combined.
func (t Type) Bundleable() bool {
	return t.Kind == KindScript || t.Kind == KindStylesheet
}

// IsImage reports whether the type renders as an image tag.
func (t Type) IsImage() bool {
	switch t.Kind {
	case KindPNG, KindJPEG, KindImage:
		return true
	default:
		return false
	}
}

var types = map[string]Type{
	".js":    {Mime: "application/javascript", Kind: KindScript},
	".mjs":   {Mime: "application/javascript", Kind: KindScript},
	".css":   {Mime: "text/css", Kind: KindStylesheet},
	".png":   {Mime: "image/png", Kind: KindPNG},
	".jpg":   {Mime: "image/jpeg", Kind: KindJPEG},
	".jpeg":  {Mime: "image/jpeg", Kind: KindJPEG},
	".jpe":   {Mime: "image/jpeg", Kind: KindJPEG},
	".gif":   {Mime: "image/gif", Kind: KindImage},
	".svg":   {Mime: "image/svg+xml", Kind: KindImage},
	".webp":  {Mime: "image/webp", Kind: KindImage},
	".avif":  {Mime: "image/avif", Kind: KindImage},
	".ico":   {Mime: "image/x-icon", Kind: KindIcon},
	".cur":   {Mime: "image/x-icon", Kind: KindIcon},
	".woff":  {Mime: "font/woff", Kind: KindFont},
	".woff2": {Mime: "font/woff2", Kind: KindFont},
	".ttf":   {Mime: "font/ttf", Kind: KindFont},
	".otf":   {Mime: "font/otf", Kind: KindFont},
	".eot":   {Mime: "application/vnd.ms-fontobject", Kind: KindFont},
}

// Lookup resolves the mime type of an asset path by extension. Query and
// fragment suffixes are ignored.
func Lookup(assetPath string) (Type, bool) {
	clean, _ := SplitSuffix(assetPath)
	ext := strings.ToLower(path.Ext(clean))
	t, ok := types[ext]
	return t, ok
}

// SplitSuffix separates a trailing query or fragment from an asset path.
// "fonts/a.eot?#iefix" yields ("fonts/a.eot", "?#iefix").
func SplitSuffix(assetPath string) (string, string) {
	if idx := strings.IndexAny(assetPath, "?#"); idx >= 0 {
		return assetPath[:idx], assetPath[idx:]
	}
	return assetPath, ""
}
