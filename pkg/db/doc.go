// Package db provides PostgreSQL connectivity on pgx: pooled connections
// with startup retry, embedded goose migrations, transaction helpers, and
// readiness/shutdown hooks for the application lifecycle.
//
// Typical startup:
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, pool, migrationsFS, cfg.MigrationsTable, log); err != nil {
//	    return err
//	}
//
//	app := keel.New(
//	    keel.WithSession(session.NewPostgresStore(pool)),
//	    keel.WithHealthChecks(
//	        keel.WithReadinessCheck("db", db.Healthcheck(pool)),
//	    ),
//	)
//	return app.Run(":8080", keel.ShutdownHook(db.Shutdown(pool)))
package db
