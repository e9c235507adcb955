package main

import (
	"fmt"
	"sort"
	"strings"

	"assetcdn/internal/assets"
)

// parseAssetArg turns "a.js" into a single request and "a.js,b.js" into a
// bundle.
func parseAssetArg(arg string) (assets.Request, error) {
	parts := strings.Split(arg, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	switch len(paths) {
	case 0:
		return assets.Request{}, fmt.Errorf("asset argument %q is empty", arg)
	case 1:
		if strings.Contains(arg, ",") {
			return assets.NewBundle(paths...), nil
		}
		return assets.Single(paths[0]), nil
	default:
		return assets.NewBundle(paths...), nil
	}
}

func parseAssetArgs(args []string) ([]assets.Request, error) {
	reqs := make([]assets.Request, 0, len(args))
	for _, arg := range args {
		req, err := parseAssetArg(arg)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// parseAttrFlags converts repeated key=value flags into an attribute map.
func parseAttrFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("attribute %q must have the form key=value", v)
		}
		attrs[key] = value
	}
	return attrs, nil
}

func kindLabel(req assets.Request) string {
	if len(req.Paths) == 0 {
		return "-"
	}
	t, ok := assets.Lookup(req.Paths[0])
	if !ok {
		return "unknown"
	}
	return string(t.Kind)
}

func formatAttrs(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}
