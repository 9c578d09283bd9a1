package cache

import (
	"net/http"
	"time"
)

// NewEntry builds an entry from a response that has already been read.
// Expires is taken from the Expires header, falling back to defaultTTL.
func NewEntry(statusCode int, header http.Header, body []byte, defaultTTL time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Body:       append([]byte(nil), body...),
		StatusCode: statusCode,
		Header:     header.Clone(),
		Expires:    parseExpires(header, now, defaultTTL),
		CachedAt:   now,
	}
}

func parseExpires(header http.Header, now time.Time, defaultTTL time.Duration) time.Time {
	raw := header.Get("Expires")
	if raw == "" {
		return now.Add(defaultTTL)
	}

	expires, err := http.ParseTime(raw)
	if err != nil {
		return now.Add(defaultTTL)
	}
	if expires.Before(now) {
		// Already stale: zero TTL, Set will skip it.
		return now
	}
	return expires
}
