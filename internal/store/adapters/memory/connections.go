// Package memory implements core.ConnectionRepository in process
// memory. Used for dev mode and tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charo360/nevis-connect/internal/store/core"
)

type connectionRepo struct {
	mu   sync.RWMutex
	byID map[string]*core.Connection // key user_id|platform
}

func New() core.ConnectionRepository {
	return &connectionRepo{byID: make(map[string]*core.Connection)}
}

func key(userID, platform string) string { return userID + "|" + platform }

func (r *connectionRepo) Ping(ctx context.Context) error { return nil }

func (r *connectionRepo) Upsert(ctx context.Context, c *core.Connection) error {
	if c.UserID == "" || c.Platform == "" || c.AccountID == "" {
		return core.ErrInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	k := key(c.UserID, c.Platform)
	if prev, ok := r.byID[k]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	} else {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	cp := *c
	r.byID[k] = &cp
	return nil
}

func (r *connectionRepo) Get(ctx context.Context, userID, platform string) (*core.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[key(userID, platform)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *connectionRepo) ListByUser(ctx context.Context, userID string) ([]*core.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Connection
	for _, c := range r.byID {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (r *connectionRepo) Delete(ctx context.Context, userID, platform string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(userID, platform)
	if _, ok := r.byID[k]; !ok {
		return core.ErrNotFound
	}
	delete(r.byID, k)
	return nil
}
