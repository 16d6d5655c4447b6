package transport

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// Credentials holds the web API login. Antminer stock firmware ships with
// root/root and protects every CGI endpoint with HTTP digest auth.
type Credentials struct {
	Username string
	Password string
}

// DefaultCredentials returns the factory login.
func DefaultCredentials() Credentials {
	return Credentials{Username: "root", Password: "root"}
}

// digestRoundTripper answers HTTP digest challenges transparently: the
// request goes out bare, and a 401 with a Digest challenge is retried once
// with the computed Authorization header.
type digestRoundTripper struct {
	creds Credentials
	next  http.RoundTripper
	nc    atomic.Uint64
}

// NewDigestRoundTripper wraps next with digest authentication. A nil next
// uses http.DefaultTransport.
func NewDigestRoundTripper(creds Credentials, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &digestRoundTripper{creds: creds, next: next}
}

func (d *digestRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := d.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	challenge, ok := parseChallenge(resp.Header.Get("WWW-Authenticate"))
	if !ok {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", d.authorize(req.Method, req.URL.RequestURI(), challenge))
	return d.next.RoundTrip(retry)
}

// challenge is the subset of a Digest challenge the firmware actually sends.
type challenge struct {
	realm  string
	nonce  string
	qop    string
	opaque string
}

func parseChallenge(header string) (challenge, bool) {
	const prefix = "Digest "
	if !strings.HasPrefix(header, prefix) {
		return challenge{}, false
	}

	var c challenge
	for _, part := range strings.Split(header[len(prefix):], ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "realm":
			c.realm = value
		case "nonce":
			c.nonce = value
		case "qop":
			c.qop = value
		case "opaque":
			c.opaque = value
		}
	}
	return c, c.nonce != ""
}

// authorize computes the RFC 2617 response for the challenge.
func (d *digestRoundTripper) authorize(method, uri string, c challenge) string {
	nc := fmt.Sprintf("%08x", d.nc.Add(1))
	cnonce := newCnonce()

	ha1 := hashMD5(d.creds.Username + ":" + c.realm + ":" + d.creds.Password)
	ha2 := hashMD5(method + ":" + uri)

	var response string
	if c.qop != "" {
		response = hashMD5(strings.Join([]string{ha1, c.nonce, nc, cnonce, c.qop, ha2}, ":"))
	} else {
		response = hashMD5(ha1 + ":" + c.nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q`,
		d.creds.Username, c.realm, c.nonce, uri, response)
	if c.qop != "" {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce=%q`, c.qop, nc, cnonce)
	}
	if c.opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, c.opaque)
	}
	return b.String()
}

func newCnonce() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

func hashMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
