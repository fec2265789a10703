// migrate-to-postgres copies mine progress from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/mines.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user mines \
//	    -pg-password mines \
//	    -pg-database mines
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/database"
	"github.com/lawnchairsociety/minedepths/internal/mine"
)

func main() {
	sqlitePath := flag.String("sqlite", "data/mines.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "mines", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "mines", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "mines", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = *pgHost
	pgCfg.Port = *pgPort
	pgCfg.User = *pgUser
	pgCfg.Password = *pgPassword
	pgCfg.Database = *pgDatabase
	pgCfg.SSLMode = *pgSSLMode

	// Opening runs the schema migration, so the tables exist afterwards.
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := database.OpenWithConfig(database.Config{
		Driver:   string(database.DialectPostgres),
		Postgres: pgCfg,
	})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	start := time.Now()
	stats, err := migrate(src, dst, *dryRun)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("")
	log.Println("Migration Summary")
	log.Println("=================")
	log.Printf("Mine levels:   %d", stats.Levels)
	log.Printf("Elevators:     %d", stats.Elevators)
	log.Printf("Deepest level: %d", stats.Deepest)
	log.Printf("Elapsed:       %v", time.Since(start).Round(time.Millisecond))
	if *dryRun {
		log.Println("DRY RUN - nothing was written")
	}
}

// migrateStats counts what a migration copied.
type migrateStats struct {
	Levels    int
	Elevators int
	Deepest   int
}

// migrate copies every level record and the deepest level from src to dst.
// Existing rows in dst are overwritten. The deepest level never decreases.
func migrate(src, dst mine.InfoStore, dryRun bool) (migrateStats, error) {
	var stats migrateStats

	infos, err := src.AllInfo()
	if err != nil {
		return stats, fmt.Errorf("read mine info: %w", err)
	}
	for _, info := range infos {
		if info.ElevatorPlaced {
			stats.Elevators++
		}
		if !dryRun {
			if err := dst.PutInfo(info); err != nil {
				return stats, fmt.Errorf("write mine info for level %d: %w", info.Level, err)
			}
		}
		stats.Levels++
	}

	deepest, err := src.DeepestLevel()
	if err != nil {
		return stats, fmt.Errorf("read deepest level: %w", err)
	}
	stats.Deepest = deepest
	if !dryRun && deepest > 0 {
		if err := dst.SetDeepestLevel(deepest); err != nil {
			return stats, fmt.Errorf("write deepest level: %w", err)
		}
	}

	return stats, nil
}
