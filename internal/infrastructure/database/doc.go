// Package database opens the daemon's SQLite profile store and applies
// its embedded schema migrations.
//
// The handle embeds *sql.DB, so callers query it directly; the profile
// store is the only consumer of the schema. WAL mode keeps profile
// reads during a device attach from blocking writes, and the busy
// timeout absorbs lock contention instead of surfacing errors.
//
// Migrations are additive and live in the migrations package, which
// registers its embedded files here via a blank import:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//		return err
//	}
package database
