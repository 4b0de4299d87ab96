package i

import (
	"context"

	"github.com/beka-birhanu/maze-race/store"
)

// ResultStore is the append-only log of finished games.
type ResultStore interface {
	Append(ctx context.Context, rec store.Record) error
	List(ctx context.Context) ([]store.Record, error)
}
