package cssrewrite

import "strings"

// Ref is one url(...) token inside a declaration.
type Ref struct {
	// Start and End delimit the whole url(...) token.
	Start, End int
	Property   string
	Raw        string
	Quote      byte
}

var imageProperties = map[string]bool{
	"background":       true,
	"background-image": true,
	"content":          true,
	"border-image":     true,
	"cursor":           true,
}

const fontProperty = "src"

// Watched reports whether url references in property are published.
func Watched(property string) bool {
	property = strings.ToLower(property)
	return imageProperties[property] || property == fontProperty
}

// Scan returns the url references of watched declarations in source order.
func Scan(css string) []Ref {
	var refs []Ref
	n := len(css)
	i := 0
	for i < n {
		j := i
		for j < n && css[j] != ':' && !isBoundary(css[j]) {
			j++
		}
		if j >= n {
			break
		}
		if css[j] != ':' {
			i = j + 1
			continue
		}
		property := strings.ToLower(strings.TrimSpace(css[i:j]))
		valueStart := j + 1
		valueEnd := valueBoundary(css, valueStart)
		if Watched(property) {
			refs = append(refs, scanValue(css, valueStart, valueEnd, property)...)
		}
		i = valueEnd + 1
	}
	return refs
}

func isBoundary(c byte) bool {
	return c == ';' || c == '{' || c == '}'
}

// valueBoundary finds the end of a declaration value, skipping quoted text
// and parenthesized groups.
func valueBoundary(css string, from int) int {
	depth := 0
	var quote byte
	for k := from; k < len(css); k++ {
		c := css[k]
		switch {
		case quote != 0:
			if c == '\\' {
				k++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && isBoundary(c):
			return k
		}
	}
	return len(css)
}

func scanValue(css string, start, end int, property string) []Ref {
	var refs []Ref
	k := start
	for k < end {
		idx := indexFold(css[k:end], "url(")
		if idx < 0 {
			break
		}
		tokenStart := k + idx
		if tokenStart > start && isIdentChar(css[tokenStart-1]) {
			k = tokenStart + 4
			continue
		}
		ref, next, ok := parseURL(css, tokenStart, end)
		if !ok {
			k = tokenStart + 4
			continue
		}
		ref.Property = property
		refs = append(refs, ref)
		k = next
	}
	return refs
}

// parseURL reads url( ... ) starting at pos.
func parseURL(css string, pos, end int) (Ref, int, bool) {
	k := pos + 4
	for k < end && isSpace(css[k]) {
		k++
	}
	if k >= end {
		return Ref{}, 0, false
	}

	var raw string
	var quote byte
	if c := css[k]; c == '"' || c == '\'' {
		quote = c
		k++
		contentStart := k
		for k < end && css[k] != quote {
			if css[k] == '\\' {
				k++
			}
			k++
		}
		if k >= end {
			return Ref{}, 0, false
		}
		raw = css[contentStart:k]
		k++
		for k < end && isSpace(css[k]) {
			k++
		}
		if k >= end || css[k] != ')' {
			return Ref{}, 0, false
		}
	} else {
		contentStart := k
		depth := 0
		for k < end {
			if css[k] == '(' {
				depth++
			} else if css[k] == ')' {
				if depth == 0 {
					break
				}
				depth--
			}
			k++
		}
		if k >= end {
			return Ref{}, 0, false
		}
		raw = strings.TrimSpace(css[contentStart:k])
	}

	return Ref{Start: pos, End: k + 1, Raw: raw, Quote: quote}, k + 1, true
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), substr)
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
