package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestAuthURLWithChallenge(t *testing.T) {
	c := New("app-1", "secret", "http://localhost/cb", nil)
	u, err := url.Parse(c.AuthURL("state-1", "chal-256"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("code_challenge") != "chal-256" || q.Get("code_challenge_method") != "S256" {
		t.Fatalf("challenge missing: %v", q)
	}
}

func TestAuthURLWithoutChallenge(t *testing.T) {
	c := New("app-1", "secret", "http://localhost/cb", nil)
	u, _ := url.Parse(c.AuthURL("state-1", ""))
	if u.Query().Has("code_challenge") {
		t.Fatal("challenge must be absent when empty")
	}
}

func TestExchangeCodeSendsVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("code_verifier") != "ver-abc" {
			t.Fatalf("code_verifier = %q", r.PostForm.Get("code_verifier"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","user_id":17841400000}`))
	}))
	defer srv.Close()

	c := New("app-1", "secret", "http://localhost/cb", nil)
	c.Endpoints.Token = srv.URL

	tok, err := c.ExchangeCode(context.Background(), "code-1", "ver-abc")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tok.AccessToken != "at-1" {
		t.Fatalf("token = %+v", tok)
	}
}

func TestProfileFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("fields") != "id,username,account_type" {
			t.Fatalf("fields = %q", q.Get("fields"))
		}
		if q.Get("access_token") != "at-1" {
			t.Fatalf("access_token = %q", q.Get("access_token"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"17841","username":"shots","account_type":"BUSINESS"}`))
	}))
	defer srv.Close()

	c := New("app-1", "secret", "http://localhost/cb", nil)
	c.Endpoints.Me = srv.URL

	info, err := c.Profile(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if info.Username != "shots" || info.AccountType != "BUSINESS" {
		t.Fatalf("info = %+v", info)
	}
}
