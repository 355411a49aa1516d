// Package creds loads and validates a bearer-token credential file, ahead
// of handing the raw token to the GCS SDK's own credential provider
// (storage/hdfs authenticates a different way; see stores.buildHDFS).
package creds

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// BearerCredential is a parsed, not-yet-expired JWT bearer token read from
// a credentials file.
type BearerCredential struct {
	Raw       string
	Subject   string
	ExpiresAt time.Time
}

// LoadBearerCredential reads path (a file containing a raw JWT) and
// validates that it parses and has not expired. It does not verify a
// signature against a known key: the backend's own SDK performs that
// validation server-side when the token is presented.
func LoadBearerCredential(path string) (*BearerCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("creds: cannot read credentials file %q: %w", path, err)
	}
	raw := trimNewline(string(data))

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("creds: invalid credential token in %q: %w", path, err)
	}

	cred := &BearerCredential{Raw: raw}
	if sub, ok := claims["sub"].(string); ok {
		cred.Subject = sub
	}
	if exp, ok := claims["exp"].(float64); ok {
		cred.ExpiresAt = time.Unix(int64(exp), 0)
		if cred.ExpiresAt.Before(time.Now()) {
			return nil, fmt.Errorf("creds: credential token in %q expired at %s", path, cred.ExpiresAt)
		}
	}
	return cred, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
