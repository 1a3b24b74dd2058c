package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/linemk/tribal-market/internal/config"
)

const migrationTableName = "migrations"

// buildMigrateDSN добавляет к DSN таблицу версий golang-migrate
func buildMigrateDSN(dbCfg config.DatabaseConfig, migrationTable string) (string, error) {
	u, err := url.Parse(dbCfg.DSN())
	if err != nil {
		return "", errors.Wrap(err, "invalid database dsn")
	}
	q := u.Query()
	q.Set("x-migrations-table", migrationTable)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func main() {
	var migrationsPathFlag string
	var down bool
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back all migrations")

	// MustLoad сам вызывает flag.Parse
	cfg := config.MustLoad()

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}

	dsnForMigrate, err := buildMigrateDSN(cfg.Database, migrationTableName)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Using database %s on %s:%d", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)

	// Создаем объект мигратора
	m, err := migrate.New("file://"+migrationsPath, dsnForMigrate)
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to create migrate instance"))
	}

	apply, direction := m.Up, "applied"
	if down {
		apply, direction = m.Down, "rolled back"
	}
	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to apply")
		} else {
			log.Fatal(errors.Wrap(err, "migration failed"))
		}
	} else {
		log.Printf("Migrations %s successfully", direction)
	}

	if err := printTables(cfg.Database); err != nil {
		log.Fatal(err)
	}
}

func printTables(dbCfg config.DatabaseConfig) error {
	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return errors.Wrap(err, "failed to query tables")
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return errors.Wrap(err, "failed to scan row")
		}
		fmt.Println(" -", tableName)
	}
	return errors.Wrap(rows.Err(), "error reading rows")
}
