// Package cellindex records which cached searches cover which H3 cells, so a
// listing change can drop exactly the searches that could contain it.
package cellindex

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/cache/keys"
	"github.com/mohammed-shakir/listing-search/internal/cache/redisstore"
)

type CellIndex interface {
	// Add indexes searchKey under every cell. Searches without cells go to
	// the global bucket.
	Add(ctx context.Context, searchKey string, cells []string, ttl time.Duration) error

	// Take removes and returns every search key indexed under the cells,
	// plus the global bucket.
	Take(ctx context.Context, cells []string) ([]string, error)

	Res() int
}

type redisCellIndex struct {
	cli *redisstore.Client
	res int
}

func NewRedisIndex(cli *redisstore.Client, res int) CellIndex {
	return &redisCellIndex{cli: cli, res: res}
}

func (ci *redisCellIndex) Res() int { return ci.res }

func (ci *redisCellIndex) Add(ctx context.Context, searchKey string, cells []string, ttl time.Duration) error {
	sets := ci.setKeys(cells)
	if len(cells) == 0 {
		sets = []string{keys.GlobalIndexKey()}
	}
	if err := ci.cli.AddToSets(ctx, sets, searchKey, ttl); err != nil {
		return fmt.Errorf("cellindex add %q: %w", searchKey, err)
	}
	return nil
}

func (ci *redisCellIndex) Take(ctx context.Context, cells []string) ([]string, error) {
	sets := append(ci.setKeys(cells), keys.GlobalIndexKey())
	out, err := ci.cli.TakeSets(ctx, sets...)
	if err != nil {
		return nil, fmt.Errorf("cellindex take %d cells: %w", len(cells), err)
	}
	return out, nil
}

func (ci *redisCellIndex) setKeys(cells []string) []string {
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells)+1)
	for _, c := range cells {
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, keys.CellIndexKey(ci.res, c))
	}
	return out
}
