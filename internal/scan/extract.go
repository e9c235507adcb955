package scan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"assetcdn/internal/assets"
)

const callName = "cdn("

// Call is one CDN(...) invocation found in a template.
type Call struct {
	Args string
	Line int
}

// Extract returns the argument text of every CDN(...) call in text.
func Extract(text string) []Call {
	var calls []Call
	lower := strings.ToLower(text)
	offset := 0
	for {
		idx := strings.Index(lower[offset:], callName)
		if idx < 0 {
			break
		}
		start := offset + idx
		if start > 0 && isIdentChar(text[start-1]) {
			offset = start + len(callName)
			continue
		}
		argsStart := start + len(callName)
		end, ok := matchParen(text, argsStart)
		if !ok {
			break
		}
		args := strings.TrimSpace(text[argsStart:end])
		if args != "" {
			calls = append(calls, Call{Args: args, Line: strings.Count(text[:start], "\n") + 1})
		}
		offset = end + 1
	}
	return calls
}

// matchParen returns the index of the ')' closing a group opened just before
// from, skipping quoted text.
func matchParen(text string, from int) (int, bool) {
	depth := 0
	var quote byte
	for i := from; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}

// ParseArgs converts CDN(...) argument text into a request.
func ParseArgs(args string) (assets.Request, error) {
	var values []any
	if err := yaml.Unmarshal([]byte("["+args+"]"), &values); err != nil {
		return assets.Request{}, fmt.Errorf("parse arguments: %w", err)
	}
	if len(values) == 0 {
		return assets.Request{}, errors.New("no asset argument")
	}

	var req assets.Request
	switch v := values[0].(type) {
	case string:
		req = assets.Single(strings.TrimSpace(v))
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return assets.Request{}, fmt.Errorf("bundle member %v is not a string", item)
			}
			paths = append(paths, strings.TrimSpace(s))
		}
		if len(paths) == 0 {
			return assets.Request{}, errors.New("empty bundle")
		}
		req = assets.NewBundle(paths...)
	default:
		return assets.Request{}, fmt.Errorf("asset argument %v is not a string or list", v)
	}

	if len(values) > 1 {
		attrs, ok := values[1].(map[string]any)
		if !ok {
			return assets.Request{}, fmt.Errorf("attributes %v are not a map", values[1])
		}
		req.Attrs = stringifyAttrs(attrs)
	}
	return req, nil
}

func stringifyAttrs(in map[string]any) map[string]string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(in))
	for _, k := range keys {
		switch v := in[k].(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
