package cache

import (
	"context"
)

// LayeredCache reads through a fast first level and writes to both levels.
type LayeredCache struct {
	l1 Store
	l2 Store
}

func NewLayeredCache(l1, l2 Store) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := lc.l1.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := lc.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.l1.Put(ctx, key, v)
	return v, nil
}

func (lc *LayeredCache) Put(ctx context.Context, key string, value []byte) error {
	if err := lc.l2.Put(ctx, key, value); err != nil {
		return err
	}
	return lc.l1.Put(ctx, key, value)
}

func (lc *LayeredCache) Has(ctx context.Context, key string) (bool, error) {
	if ok, err := lc.l1.Has(ctx, key); err == nil && ok {
		return true, nil
	}
	return lc.l2.Has(ctx, key)
}
