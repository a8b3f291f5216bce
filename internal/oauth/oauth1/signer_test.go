package oauth1

import (
	"strings"
	"testing"
	"time"
)

// Reference vector from the published Twitter signing example
// (POST statuses/update, "Hello Ladies + Gentlemen, a signed OAuth request!").
const (
	refConsumerSecret = "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw"
	refTokenSecret    = "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE"
	refSignature      = "hCtSmYh+iHYCEqBWrE7C7hYmtUk="
)

func refParams() map[string]string {
	return map[string]string{
		"status":                 "Hello Ladies + Gentlemen, a signed OAuth request!",
		"include_entities":       "true",
		"oauth_consumer_key":     "xvz1evFS4wEEPTGEFPHBog",
		"oauth_nonce":            "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1318622958",
		"oauth_token":            "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		"oauth_version":          "1.0",
	}
}

func TestSign_ReferenceVector(t *testing.T) {
	sig, err := Sign("POST", "https://api.twitter.com/1.1/statuses/update.json",
		refParams(), refConsumerSecret, refTokenSecret)
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	if sig != refSignature {
		t.Fatalf("signature mismatch: got %q want %q", sig, refSignature)
	}
}

func TestSign_ReferenceVectorClassic(t *testing.T) {
	// Earlier edition of the same example, different consumer secret.
	sig, err := Sign("POST", "https://api.twitter.com/1.1/statuses/update.json",
		refParams(), "kAcSOqF21Fu85e7bjz7KyM6juHXzkN98", refTokenSecret)
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	if want := "tnnArxj06cWHq44gCs1OSKk/jLY="; sig != want {
		t.Fatalf("signature mismatch: got %q want %q", sig, want)
	}
}

func TestSign_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		sig, err := Sign("POST", "https://api.twitter.com/1.1/statuses/update.json",
			refParams(), refConsumerSecret, refTokenSecret)
		if err != nil {
			t.Fatalf("Sign err: %v", err)
		}
		if sig != refSignature {
			t.Fatalf("iteration %d: signature drifted: %q", i, sig)
		}
	}
}

func TestSign_QueryParamsFoldedIntoBaseString(t *testing.T) {
	// include_entities moved from the param map to the URL query must
	// produce the identical signature.
	params := refParams()
	delete(params, "include_entities")
	sig, err := Sign("POST", "https://api.twitter.com/1.1/statuses/update.json?include_entities=true",
		params, refConsumerSecret, refTokenSecret)
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	if sig != refSignature {
		t.Fatalf("signature mismatch with query folding: got %q want %q", sig, refSignature)
	}
}

func TestSign_EmptyTokenSecret(t *testing.T) {
	// Request-token style call: no token yet, key ends with "&".
	params := map[string]string{
		"oauth_callback":         "http://localhost/callback?state=abc123",
		"oauth_consumer_key":     "ck",
		"oauth_nonce":            "n1",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1700000000",
		"oauth_version":          "1.0",
	}
	sig, err := Sign("POST", "https://api.twitter.com/oauth/request_token", params, "cs", "")
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	if want := "EB8ZC+9mt6kKlE8XeCodkrtpkVM="; sig != want {
		t.Fatalf("signature mismatch: got %q want %q", sig, want)
	}
}

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"abcABC123-._~":        "abcABC123-._~", // unreserved passes through
		"hello world!'()*~-._": "hello%20world%21%27%28%29%2A~-._",
		"a&b=c":                "a%26b%3Dc",
		"Ladies + Gentlemen":   "Ladies%20%2B%20Gentlemen",
		"☃":               "%E2%98%83", // multibyte UTF-8
		"":                     "",
	}
	for in, want := range cases {
		if got := PercentEncode(in); got != want {
			t.Errorf("PercentEncode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignatureBaseString_SortsByEncodedKey(t *testing.T) {
	base, err := SignatureBaseString("get", "https://example.com/r", map[string]string{
		"b": "2", "a": "1", "A": "0",
	})
	if err != nil {
		t.Fatalf("base string err: %v", err)
	}
	// Uppercase method, and A < a < b in byte order.
	want := "GET&https%3A%2F%2Fexample.com%2Fr&A%3D0%26a%3D1%26b%3D2"
	if base != want {
		t.Fatalf("base string mismatch:\n got %q\nwant %q", base, want)
	}
}

func TestSignatureBaseString_StripsDefaultPort(t *testing.T) {
	a, err := SignatureBaseString("GET", "HTTPS://Example.COM:443/path", nil)
	if err != nil {
		t.Fatalf("base string err: %v", err)
	}
	b, err := SignatureBaseString("GET", "https://example.com/path", nil)
	if err != nil {
		t.Fatalf("base string err: %v", err)
	}
	if a != b {
		t.Fatalf("default port/case not normalized: %q vs %q", a, b)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	s := NewSigner("ck", "cs")
	s.NonceFn = func() string { return "n1" }
	s.TimeFn = func() time.Time { return time.Unix(1700000000, 0) }

	hdr, err := s.AuthorizationHeader("POST", "https://api.twitter.com/oauth/request_token",
		map[string]string{"oauth_callback": "http://localhost/callback?state=abc123"}, nil, "", "")
	if err != nil {
		t.Fatalf("header err: %v", err)
	}
	if !strings.HasPrefix(hdr, "OAuth ") {
		t.Fatalf("missing OAuth prefix: %q", hdr)
	}
	for _, want := range []string{
		`oauth_consumer_key="ck"`,
		`oauth_nonce="n1"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_timestamp="1700000000"`,
		`oauth_version="1.0"`,
		`oauth_callback="http%3A%2F%2Flocalhost%2Fcallback%3Fstate%3Dabc123"`,
		`oauth_signature="EB8ZC%2B9mt6kKlE8XeCodkrtpkVM%3D"`,
	} {
		if !strings.Contains(hdr, want) {
			t.Errorf("header missing %s\nheader: %s", want, hdr)
		}
	}
	if strings.Contains(hdr, "oauth_token=") {
		t.Errorf("empty token must be omitted: %s", hdr)
	}
}
