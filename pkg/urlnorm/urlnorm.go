// Package urlnorm provides the canonical URL normalizer, URL/text hashing,
// eTLD+1 extraction, and path normalization shared by the feed poller and
// the hybrid retriever. Keeping these in one package guarantees both sides
// of the pipeline agree on what "the same article" means.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// trackingParamPrefixes and trackingParamNames are stripped from every URL,
// query-string match is exact or prefix depending on which list matches.
var trackingParamPrefixes = []string{"utm_"}

var trackingParamNames = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"_ga":    true,
	"msclkid": true,
	"mc_cid": true,
	"mc_eid": true,
	"ref":    true,
	"ref_src": true,
}

// meaninglessPathSuffixes are stripped from the end of a URL path during
// path normalization, per §4.9.
var meaninglessPathSuffixes = []string{".html", ".htm", ".php"}

// Normalize produces the canonical form of an article or feed URL:
// lowercased scheme/host, "www." stripped, tracking parameters removed,
// default ports removed, trailing slash removed.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = stripDefaultPort(host, u.Scheme)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	if u.RawQuery != "" {
		u.RawQuery = stripTrackingParams(u.RawQuery)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	return u.String(), nil
}

func stripDefaultPort(host, scheme string) string {
	defaultPort := map[string]string{"http": ":80", "https": ":443"}[scheme]
	if defaultPort != "" && strings.HasSuffix(host, defaultPort) {
		return strings.TrimSuffix(host, defaultPort)
	}
	return host
}

func stripTrackingParams(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for key := range values {
		lower := strings.ToLower(key)
		if trackingParamNames[lower] {
			values.Del(key)
			continue
		}
		for _, prefix := range trackingParamPrefixes {
			if strings.HasPrefix(lower, prefix) {
				values.Del(key)
				break
			}
		}
	}
	return values.Encode()
}

// HashURL returns the sha256 hex digest of a canonical URL. Deterministic:
// HashURL(u) == HashURL(Normalize(u)) for any already-canonical u.
func HashURL(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}

// HashText returns the sha256 hex digest of normalized clean text, used for
// the Article's text_hash.
func HashText(normalizedText string) string {
	sum := sha256.Sum256([]byte(normalizedText))
	return hex.EncodeToString(sum[:])
}

// ETLD1 returns the effective top-level-domain-plus-one label for a host or
// URL string (e.g. "news.bbc.co.uk" -> "bbc.co.uk"), using the full public
// suffix list. Idempotent: ETLD1(ETLD1(h)) == ETLD1(h).
func ETLD1(hostOrURL string) (string, error) {
	host := hostOrURL
	if u, err := url.Parse(hostOrURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)
	host = stripPort(host)
	host = strings.TrimPrefix(host, "www.")

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// host is itself a public suffix, or has no registrable domain
		// (e.g. a bare IP); fall back to the host unchanged.
		return host, nil
	}
	return etld1, nil
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i != -1 {
		return host[:i]
	}
	return host
}

// NormalizePath lowercases a URL's path and query, drops tracking
// parameters and meaningless suffixes, and sorts remaining query
// parameters alphabetically. Used by the retriever's dedup grouping key.
func NormalizePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}

	path := strings.ToLower(u.Path)
	path = strings.TrimSuffix(path, "/")
	for _, suffix := range meaninglessPathSuffixes {
		path = strings.TrimSuffix(path, suffix)
	}

	query := ""
	if u.RawQuery != "" {
		values, err := url.ParseQuery(stripTrackingParams(u.RawQuery))
		if err == nil && len(values) > 0 {
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var b strings.Builder
			for i, k := range keys {
				if i > 0 {
					b.WriteByte('&')
				}
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(values.Get(k))
			}
			query = b.String()
		}
	}

	if query == "" {
		return path
	}
	return path + "?" + query
}
