// Package all links every built-in storage sink into the storage registry.
//
// Importing it for side effects runs each backend's init, which registers the
// repository factory and the DDL bootstrapper for its kind:
//
//   - "arrow"    (fastjsonl/internal/storage/arrowfile)
//   - "mssql"    (fastjsonl/internal/storage/mssql)
//   - "mysql"    (fastjsonl/internal/storage/mysql)
//   - "postgres" (fastjsonl/internal/storage/postgres)
//   - "sqlite"   (fastjsonl/internal/storage/sqlite)
//
// Typical usage in a wiring layer:
//
//	import _ "fastjsonl/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: job.Storage.Kind, DSN: dsn, Table: table})
//	if err != nil { ... }
//	defer repo.Close()
//
//	if job.Storage.DB.AutoCreateTable {
//	    err = storage.EnsureTable(ctx, job.Storage.Kind, repo, table, schema)
//	}
//	n, err := storage.WriteRecord(ctx, repo, rec, batchSize, storage.LoadOptions{Logger: logger})
package all

import (
	_ "fastjsonl/internal/storage/arrowfile"
	_ "fastjsonl/internal/storage/mssql"
	_ "fastjsonl/internal/storage/mysql"
	_ "fastjsonl/internal/storage/postgres"
	_ "fastjsonl/internal/storage/sqlite"
)
