package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached response by request URL and request headers.
type Key struct {
	URL     string
	Headers http.Header
}

// String generates a deterministic Redis key.
// Format: ree:<host>/<path>:<query k=v sorted>:h=<header digest>
//
// Example:
//
//	ree:apidatos.ree.es/es/datos/balance/balance-electrico:geo_ids=4:time_trunc=month
func (k Key) String() string {
	parts := []string{"ree"}

	u, err := url.Parse(k.URL)
	if err != nil {
		parts = append(parts, k.URL)
	} else {
		if target := strings.Trim(u.Host+u.Path, "/"); target != "" {
			parts = append(parts, target)
		}

		query := u.Query()
		names := make([]string, 0, len(query))
		for name := range query {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			values := append([]string(nil), query[name]...)
			sort.Strings(values)
			parts = append(parts, name+"="+strings.Join(values, ","))
		}
	}

	if digest := headerDigest(k.Headers); digest != "" {
		parts = append(parts, "h="+digest)
	}

	return strings.Join(parts, ":")
}

// headerDigest hashes the headers so credentials never appear in Redis keys.
func headerDigest(h http.Header) string {
	if len(h) == 0 {
		return ""
	}

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, http.CanonicalHeaderKey(name))
	}
	sort.Strings(names)

	sum := sha256.New()
	for _, name := range names {
		sum.Write([]byte(name))
		sum.Write([]byte{0})
		sum.Write([]byte(strings.Join(h.Values(name), ",")))
		sum.Write([]byte{'\n'})
	}
	return hex.EncodeToString(sum.Sum(nil))[:16]
}
