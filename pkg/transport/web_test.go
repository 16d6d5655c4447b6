package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newWebClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "http://")
	return NewHTTPClient(host, DefaultCredentials()), srv
}

func TestHTTPClientGet(t *testing.T) {
	c, _ := newWebClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET for nil params", r.Method)
		}
		if r.URL.Path != "/cgi-bin/get_system_info.cgi" {
			t.Errorf("path = %s, want /cgi-bin/get_system_info.cgi", r.URL.Path)
		}
		fmt.Fprint(w, `{"minertype":"Antminer S19","macaddr":"AA:BB"}`)
	}))

	data, err := c.Send(context.Background(), "get_system_info", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if data["minertype"] != "Antminer S19" {
		t.Errorf("minertype = %v", data["minertype"])
	}
}

func TestHTTPClientPost(t *testing.T) {
	c, _ := newWebClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST with params", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var params map[string]any
		if err := json.Unmarshal(body, &params); err != nil {
			t.Errorf("body not JSON: %v", err)
		}
		if params["blink"] != true {
			t.Errorf("blink = %v, want true", params["blink"])
		}
		fmt.Fprint(w, `{"code":"B000"}`)
	}))

	data, err := c.Send(context.Background(), "blink", map[string]any{"blink": true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if data["code"] != "B000" {
		t.Errorf("code = %v, want B000", data["code"])
	}
}

func TestHTTPClientEmptyBody(t *testing.T) {
	c, _ := newWebClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	data, err := c.Send(context.Background(), "reboot", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if data == nil || len(data) != 0 {
		t.Errorf("data = %v, want empty map for an empty body", data)
	}
}

func TestHTTPClientStatusError(t *testing.T) {
	c, _ := newWebClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))

	_, err := c.Send(context.Background(), "nope", nil)
	if err == nil {
		t.Fatal("Send on 404 succeeded, want error")
	}
	if !IsTransport(err) {
		t.Errorf("error %v is not a transport error", err)
	}
}

func TestHTTPClientDigestAuth(t *testing.T) {
	const realm = "antMiner Configuration"
	const nonce = "abcdef0123456789"

	var authed bool
	c, _ := newWebClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Digest realm="%s", nonce="%s", qop="auth"`, realm, nonce))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Digest ") ||
			!strings.Contains(auth, `username="root"`) ||
			!strings.Contains(auth, fmt.Sprintf(`nonce="%s"`, nonce)) ||
			!strings.Contains(auth, "response=") {
			t.Errorf("malformed Authorization header: %s", auth)
		}
		authed = true
		fmt.Fprint(w, `{"minertype":"Antminer S9"}`)
	}))

	data, err := c.Send(context.Background(), "get_system_info", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !authed {
		t.Fatal("server never saw an authorized request")
	}
	if data["minertype"] != "Antminer S9" {
		t.Errorf("minertype = %v", data["minertype"])
	}
}

func TestHTTPClientDigestAuthRepostsBody(t *testing.T) {
	const nonce = "feedbeef"

	c, _ := newWebClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Digest realm="x", nonce="%s"`, nonce))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var params map[string]any
		if err := json.Unmarshal(body, &params); err != nil || params["blink"] != true {
			t.Errorf("retried POST lost its body: %q", body)
		}
		fmt.Fprint(w, `{"code":"B000"}`)
	}))

	if _, err := c.Send(context.Background(), "blink", map[string]any{"blink": true}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestParseChallenge(t *testing.T) {
	c, ok := parseChallenge(`Digest realm="antMiner", nonce="abc123", qop="auth", opaque="xyz"`)
	if !ok {
		t.Fatal("challenge not recognized")
	}
	if c.realm != "antMiner" || c.nonce != "abc123" || c.qop != "auth" || c.opaque != "xyz" {
		t.Errorf("challenge = %+v", c)
	}

	if _, ok := parseChallenge(`Basic realm="x"`); ok {
		t.Error("Basic challenge accepted as Digest")
	}
	if _, ok := parseChallenge(""); ok {
		t.Error("empty header accepted")
	}
}
