package linkedin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestAuthURL(t *testing.T) {
	c := New("client-1", "secret", "http://localhost/cb", nil)
	u, err := url.Parse(c.AuthURL("state-abc"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("response_type") != "code" {
		t.Fatalf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "client-1" || q.Get("state") != "state-abc" {
		t.Fatalf("bad query: %v", q)
	}
	if q.Get("scope") != "openid profile email" {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Fatalf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "code-1" || r.PostForm.Get("client_secret") != "secret" {
			t.Fatalf("bad form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","expires_in":5184000}`))
	}))
	defer srv.Close()

	c := New("client-1", "secret", "http://localhost/cb", nil)
	c.Endpoints.Token = srv.URL

	tok, err := c.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tok.AccessToken != "at-1" || tok.ExpiresIn != 5184000 {
		t.Fatalf("token = %+v", tok)
	}
}

func TestExchangeCodeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New("client-1", "secret", "http://localhost/cb", nil)
	c.Endpoints.Token = srv.URL

	if _, err := c.ExchangeCode(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Fatalf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"mem-1","name":"Mem Ber","email":"m@example.com","email_verified":true}`))
	}))
	defer srv.Close()

	c := New("client-1", "secret", "http://localhost/cb", nil)
	c.Endpoints.UserInfo = srv.URL

	info, err := c.Profile(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if info.Sub != "mem-1" || info.Email != "m@example.com" {
		t.Fatalf("info = %+v", info)
	}
}
