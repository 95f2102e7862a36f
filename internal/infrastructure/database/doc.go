// Package database provides SQLite connectivity for tadolink.
//
// The database is small: it holds the OAuth2 credential set and the
// schema_migrations bookkeeping table. The package wraps *sql.DB with
// lifecycle management, a health check, and embedded SQL migrations.
//
// Security considerations:
//   - All queries use parameterised statements
//   - The database file is chmodded 0600 since it stores refresh tokens
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "data/tadolink.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the migrations package and are embedded at
// build time. Each schema change ships as a
// YYYYMMDD_HHMMSS_description.up.sql file with a matching .down.sql
// for rollback.
package database
