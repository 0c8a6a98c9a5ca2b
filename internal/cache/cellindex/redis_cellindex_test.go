package cellindex

import (
	"context"
	"slices"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/listing-search/internal/cache/keys"
	"github.com/mohammed-shakir/listing-search/internal/cache/redisstore"
)

func newMini(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	cli, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	return cli, mr
}

func TestRedisCellIndex_AddTake(t *testing.T) {
	cli, mr := newMini(t)
	idx := NewRedisIndex(cli, 6)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	ttl := 2 * time.Minute
	if err := idx.Add(ctx, "search:a", []string{"c1", "c2", "c1"}, ttl); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "search:b", []string{"c3"}, ttl); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "search:all", nil, ttl); err != nil {
		t.Fatalf("Add global: %v", err)
	}

	k := keys.CellIndexKey(6, "c1")
	if tt := mr.TTL(k); tt <= 0 || tt > ttl {
		t.Fatalf("unexpected TTL for key %q: %v", k, tt)
	}

	got, err := idx.Take(ctx, []string{"c2"})
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	slices.Sort(got)
	if !slices.Equal(got, []string{"search:a", "search:all"}) {
		t.Fatalf("Take=%v", got)
	}
	if mr.Exists(keys.GlobalIndexKey()) || mr.Exists(keys.CellIndexKey(6, "c2")) {
		t.Fatalf("taken sets must be deleted")
	}
	if !mr.Exists(keys.CellIndexKey(6, "c3")) {
		t.Fatalf("unrelated cell set removed")
	}
}

func TestRedisCellIndex_TakeUnknownCellIsEmpty(t *testing.T) {
	cli, _ := newMini(t)
	idx := NewRedisIndex(cli, 7)

	got, err := idx.Take(context.Background(), []string{"nope"})
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no keys, got=%v", got)
	}
	if idx.Res() != 7 {
		t.Fatalf("res=%d", idx.Res())
	}
}
