package mysql

import (
	"context"

	"fastjsonl/internal/storage"
	myddl "fastjsonl/internal/storage/mysql/ddl"
)

// newRepository is replaced in tests to avoid opening a real database.
var newRepository = NewRepository

var _ storage.Sink = (*Repository)(nil)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return storage.WithClose(r, closeFn), nil
	})
	storage.RegisterDDL("mysql", myddl.EnsureTable)
}
