// Package cos ("common os"-style helpers, named after the reference
// system's own cmn/cos package) holds the small, pure functions the
// reconciliation case table leans on: property cleaning and checksum
// comparison.
package cos

import "strings"

// ChecksumKey is the content-property key that carries the source MD5,
// required on every source object the processor is asked to reconcile.
const ChecksumKey = "content-checksum"

// MimetypeKey is propagated verbatim from source to destination on copy.
const MimetypeKey = "content-mimetype"

// synthesizedKeys are transport/storage-synthesized properties stripped
// before any cross-store property comparison or copy, per the reconciliation
// spec: comparing them would make every object look "drifted" purely
// because two backends stamp metadata differently.
var synthesizedKeys = map[string]struct{}{
	"content-md5":          {},
	"platform-checksum":    {},
	"modified-time":        {},
	"size":                 {},
	"content-length":       {},
	"content-type":         {},
	"last-modified":        {},
	"date":                 {},
	"etag":                 {},
	"content-length-lower": {}, // lowercased-header shadow entries, see Clean
}

var httpHeaders = []string{
	"Content-Length", "Content-Type", "Last-Modified", "Date", "ETag",
}

// Clean returns a copy of props with synthesized keys removed, including
// the lowercased variants of the HTTP headers that some backends echo back
// as properties (S3 and HDFS both do this under slightly different casing).
func Clean(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		lk := strings.ToLower(k)
		if _, synth := synthesizedKeys[lk]; synth {
			continue
		}
		if isHTTPHeaderLower(lk) {
			continue
		}
		out[k] = v
	}
	return out
}

func isHTTPHeaderLower(lk string) bool {
	for _, h := range httpHeaders {
		if strings.ToLower(h) == lk {
			return true
		}
	}
	return false
}

// Equal reports whether two cleaned property maps are equal.
func Equal(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Checksum extracts the required source checksum from props. The second
// return is false when the key is absent or empty, which the processor
// treats as a fatal, non-retryable condition (missing source checksum).
func Checksum(props map[string]string) (string, bool) {
	v, ok := props[ChecksumKey]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
