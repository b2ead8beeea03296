// Package database opens the SQLite file that holds persisted property
// object snapshots and applies the embedded schema migrations.
//
// The connection runs in WAL mode with a busy timeout and a single writer
// connection, which is the shape SQLite handles best:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration is applied in its own
// transaction and recorded in schema_migrations.
package database
