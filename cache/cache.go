// Package cache stores computed artifacts under a hash of the configuration that produced them.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/tantralabs/krypto/logger"
)

// Version is mixed into every key so a schema change invalidates old entries.
const Version = "v1"

var ErrCacheMiss = errors.New("cache: key not found")

// Store is a keyed byte store. Put replaces a key's value atomically; Get returns
// ErrCacheMiss for an absent key. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Has(ctx context.Context, key string) (bool, error)
}

// Key hashes the canonical JSON encoding of parts.
func Key(kind string, parts interface{}) string {
	raw, err := json.Marshal(struct {
		Version string      `json:"version"`
		Kind    string      `json:"kind"`
		Parts   interface{} `json:"parts"`
	}{Version, kind, parts})
	if err != nil {
		// unencodable parts can never hit
		return ""
	}
	sum := sha256.Sum256(raw)
	return kind + ":" + hex.EncodeToString(sum[:])
}

// Fetch returns the cached value for key, or computes, stores and returns it. Any cache
// failure falls back to compute; only compute errors are returned.
func Fetch[T any](ctx context.Context, store Store, key string, compute func() (T, error)) (T, error) {
	if store == nil || key == "" {
		return compute()
	}
	if raw, err := store.Get(ctx, key); err == nil {
		var v T
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err == nil {
			return v, nil
		}
		logger.Debugf("cache: dropping undecodable entry %s", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Debugf("cache: get %s: %v", key, err)
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		logger.Debugf("cache: encode %s: %v", key, err)
		return v, nil
	}
	if err := store.Put(ctx, key, buf.Bytes()); err != nil {
		logger.Debugf("cache: put %s: %v", key, err)
	}
	return v, nil
}
