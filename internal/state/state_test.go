package state

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"

	"github.com/charo360/nevis-connect/internal/cache/memory"
	cacheredis "github.com/charo360/nevis-connect/internal/cache/redis"
)

func TestPutGetDelete(t *testing.T) {
	s := New(memory.New(time.Minute), time.Minute)

	st := &AuthState{ID: "s1", Platform: "linkedin", UserID: "u1", CodeVerifier: "v1"}
	if err := s.Put(st); err != nil {
		t.Fatalf("Put err: %v", err)
	}
	if st.CreatedAt.IsZero() || st.ExpiresAt.IsZero() {
		t.Fatalf("Put did not stamp lifecycle fields: %+v", st)
	}

	got, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Platform != "linkedin" || got.UserID != "u1" || got.CodeVerifier != "v1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	s.Delete(got)
	if _, err := s.Get("s1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGet_ExpiredRecordIsAbsent(t *testing.T) {
	// Backend keeps the record; the store's own expiry check must hide it.
	s := New(memory.New(time.Minute), time.Hour)
	if err := s.Put(&AuthState{ID: "s1", Platform: "twitter"}); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Get("s1"); err != ErrNotFound {
		t.Fatalf("expired record must read as absent, got %v", err)
	}
}

func TestDualKeying_RequestTokenRecovery(t *testing.T) {
	s := New(memory.New(time.Minute), time.Minute)

	st := &AuthState{ID: "s1", Platform: "twitter", RequestToken: "RT", RequestTokenSecret: "RTS"}
	if err := s.Put(st); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	// Callback without a state param resolves through the token alias.
	got, err := s.GetByRequestToken("RT")
	if err != nil {
		t.Fatalf("GetByRequestToken err: %v", err)
	}
	if got.ID != "s1" || got.RequestTokenSecret != "RTS" {
		t.Fatalf("alias resolved wrong record: %+v", got)
	}

	// Consuming the record removes both keys.
	s.Delete(got)
	if _, err := s.Get("s1"); err != ErrNotFound {
		t.Fatalf("state key survived delete: %v", err)
	}
	if _, err := s.GetByRequestToken("RT"); err != ErrNotFound {
		t.Fatalf("token alias survived delete: %v", err)
	}
}

func TestAliasRequestToken_AfterPut(t *testing.T) {
	s := New(memory.New(time.Minute), time.Minute)
	if err := s.Put(&AuthState{ID: "s1", Platform: "twitter"}); err != nil {
		t.Fatalf("Put err: %v", err)
	}
	s.AliasRequestToken("RT", "s1")

	got, err := s.GetByRequestToken("RT")
	if err != nil {
		t.Fatalf("GetByRequestToken err: %v", err)
	}
	if got.ID != "s1" {
		t.Fatalf("wrong record: %+v", got)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	s := New(cacheredis.NewFromClient(client, "t:"), time.Minute)

	st := &AuthState{ID: "s1", Platform: "twitter", RequestToken: "RT", RequestTokenSecret: "RTS"}
	if err := s.Put(st); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	got, err := s.GetByRequestToken("RT")
	if err != nil {
		t.Fatalf("GetByRequestToken err: %v", err)
	}
	if got.RequestTokenSecret != "RTS" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	// TTL expiry in the backend itself.
	mr.FastForward(2 * time.Minute)
	if _, err := s.Get("s1"); err != ErrNotFound {
		t.Fatalf("expected backend expiry, got %v", err)
	}
}
