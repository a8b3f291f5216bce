package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		if err != nil || !res.Allowed {
			t.Fatalf("hit %d: res=%+v err=%v", i, res, err)
		}
	}
	res, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("third hit must be denied")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("retry after = %v", res.RetryAfter)
	}

	// Other keys are unaffected.
	res, _ = l.Allow(ctx, "5.6.7.8")
	if !res.Allowed {
		t.Fatal("separate key throttled")
	}
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(client, "rl:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		if err != nil || !res.Allowed {
			t.Fatalf("hit %d: res=%+v err=%v", i, res, err)
		}
	}
	res, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("third hit must be denied")
	}

	// A new window starts clean.
	mr.FastForward(2 * time.Minute)
	res, err = l.Allow(ctx, "1.2.3.4")
	if err != nil || !res.Allowed {
		t.Fatalf("after window: res=%+v err=%v", res, err)
	}
}
