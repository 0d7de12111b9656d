package cache

import (
	"context"
	"errors"
	"math"
	"os"
	"reflect"
	"sync"
	"testing"

	"github.com/tantralabs/krypto/models"
)

func artifact() []models.Relationship {
	return []models.Relationship{
		{Predictor: "AAA", Target: "BBB", Indicator: models.RSI, Depth: 1, Correlation: 0.1 + 0.2, Weight: 1},
		{Predictor: "BBB", Target: "BBB", Indicator: models.CCI, Depth: 2, Correlation: -math.SmallestNonzeroFloat64, Weight: 1},
		{Predictor: "CCC", Target: "BBB", Indicator: models.Stochastic, Depth: 3, Correlation: math.Nextafter(1, 0), Weight: 1},
	}
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	key := Key("relationships", map[string]interface{}{"symbols": []string{"AAA", "BBB"}, "depth": 3})

	if _, err := store.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Error(err, "is not", ErrCacheMiss)
	}
	if ok, _ := store.Has(ctx, key); ok {
		t.Error("empty store has", key)
	}

	computed := 0
	compute := func() ([]models.Relationship, error) {
		computed++
		return artifact(), nil
	}
	first, err := Fetch(ctx, store, key, compute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Fetch(ctx, store, key, compute)
	if err != nil {
		t.Fatal(err)
	}
	if computed != 1 {
		t.Error("computed", computed, "times")
	}
	direct := artifact()
	for i := range direct {
		if math.Float64bits(second[i].Correlation) != math.Float64bits(direct[i].Correlation) {
			t.Error(second[i].Correlation, "is not bit identical to", direct[i].Correlation)
		}
	}
	if !reflect.DeepEqual(first, second) {
		t.Error(second, "is not", first)
	}
	if ok, _ := store.Has(ctx, key); !ok {
		t.Error("store is missing", key)
	}
}

func TestMemoryCache(t *testing.T) {
	testStore(t, NewMemoryCache(0))
}

func TestFileCache(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, fc)
}

func TestLayeredCache(t *testing.T) {
	l1, l2 := NewMemoryCache(0), NewMemoryCache(0)
	testStore(t, NewLayeredCache(l1, l2))
	if l1.Len() != 1 || l2.Len() != 1 {
		t.Error("layers hold", l1.Len(), l2.Len())
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("KRYPTO_TEST_REDIS")
	if addr == "" {
		t.Skip("KRYPTO_TEST_REDIS not set")
	}
	rc, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, Prefix: "krypto-test-" + t.Name()})
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	testStore(t, rc)
}

func TestKeyStable(t *testing.T) {
	a := Key("features", []string{"AAA", "BBB"})
	b := Key("features", []string{"AAA", "BBB"})
	c := Key("features", []string{"BBB", "AAA"})
	if a != b {
		t.Error(a, "is not", b)
	}
	if a == c {
		t.Error("different parts share a key")
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return []byte("garbage"), nil }
func (brokenStore) Put(context.Context, string, []byte) error   { return errors.New("disk full") }
func (brokenStore) Has(context.Context, string) (bool, error)   { return true, nil }

func TestFetchFallsBack(t *testing.T) {
	got, err := Fetch(context.Background(), brokenStore{}, "k", func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Error(got, err, "is not", 42)
	}
}

func TestMemoryCacheConcurrent(t *testing.T) {
	mc := NewMemoryCache(8)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("n", i)
			_ = mc.Put(ctx, key, []byte{byte(i)})
			_, _ = mc.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	if mc.Len() > 8 {
		t.Error(mc.Len(), "entries exceed the limit")
	}
}
