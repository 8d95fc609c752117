// Package database provides the SQLite connection homebus keeps its
// command audit trail in.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout
//   - Forward-only schema migrations read from an fs.FS
//
// All queries use parameterised statements and the database file is
// created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named NNNN_description.sql and applied in name
// order, each in its own transaction. Applied versions are recorded in
// schema_migrations; a file is never applied twice.
package database
