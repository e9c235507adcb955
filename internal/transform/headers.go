package transform

import (
	"time"

	"assetcdn/internal/store"
)

const (
	// CacheMaxAgeSeconds is roughly one year.
	CacheMaxAgeSeconds = 31556926
	CacheControl       = "maxage=31556926"
	ContentEncoding    = "gzip"
)

// Headers returns the response headers stored with every published object.
func Headers(mime string, now time.Time) store.Headers {
	return store.Headers{
		ContentType:     mime,
		CacheControl:    CacheControl,
		ContentEncoding: ContentEncoding,
		Expires:         now.Add(CacheMaxAgeSeconds * time.Second).UTC(),
	}
}
