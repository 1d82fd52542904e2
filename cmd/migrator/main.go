package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag   = "storage-path"
	migrationPathFlag = "migrations-path"
	downFlag          = "down"
	stepsFlag         = "steps"
)

type flags struct {
	storagePath    string
	migrationsPath string
	down           bool
	steps          int
}

func main() {
	f := getFlagsValues()
	validateFlags(f)
	makeMigrations(f)
}

type MigrationLogger struct {
	logger  *slog.Logger
	verbose bool
}

func NewMigrationLogger() *MigrationLogger {
	return &MigrationLogger{
		logger:  slog.Default(),
		verbose: true,
	}
}

func (ml *MigrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (ml *MigrationLogger) Verbose() bool {
	return ml.verbose
}

func getFlagsValues() flags {
	storagePath := pflag.StringP(storagePathFlag, "s", "",
		"postgres DSN, with or without the postgres:// scheme")
	migrationsPath := pflag.StringP(migrationPathFlag, "m", "", "migrations directory")
	down := pflag.Bool(downFlag, false, "roll back instead of applying")
	steps := pflag.Int(stepsFlag, 0, "apply or roll back only n migrations")
	pflag.Parse()
	return flags{
		storagePath:    *storagePath,
		migrationsPath: *migrationsPath,
		down:           *down,
		steps:          *steps,
	}
}

func validateFlags(f flags) {
	var errs []error

	if f.storagePath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", storagePathFlag))
	}

	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationPathFlag))
	}

	if f.steps < 0 {
		errs = append(errs, fmt.Errorf("--%s flag: must not be negative", stepsFlag))
	}

	if len(errs) != 0 {
		slog.Error("invalid args", "err", errors.Join(errs...))
		fallDown()
	}
}

func makeMigrations(f flags) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", f.migrationsPath),
		fmt.Sprintf("pgx5://%s", trimScheme(f.storagePath)),
	)
	if err != nil {
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}
	defer closeMigrate(m)

	m.Log = NewMigrationLogger()

	if err := run(m, f); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return
		}
		slog.Error("failed to migrate", "err", err)
		closeMigrate(m)
		fallDown()
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		slog.Error("failed to read schema version", "err", err)
		return
	}
	m.Log.Printf("migration applied, version=%d dirty=%t", version, dirty)
}

func run(m *migrate.Migrate, f flags) error {
	switch {
	case f.steps > 0 && f.down:
		return m.Steps(-f.steps)
	case f.steps > 0:
		return m.Steps(f.steps)
	case f.down:
		return m.Down()
	default:
		return m.Up()
	}
}

func trimScheme(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://", "pgx5://"} {
		dsn = strings.TrimPrefix(dsn, scheme)
	}
	return dsn
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		slog.Error("failed to close migrate", "err", err)
	}
}

func fallDown() {
	os.Exit(2)
}
