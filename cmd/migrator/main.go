package main

import (
	"flag"

	"github.com/SakuraBurst/bored/internal/pkg/logger"
	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	var storagePath, migrationPath string
	var down bool
	flag.StringVar(&storagePath, "storage", "", "path to storage")
	flag.StringVar(&migrationPath, "migrations", "", "path to migrations")
	flag.BoolVar(&down, "down", false, "roll every migration back")
	flag.Parse()

	if storagePath == "" {
		panic("storage path is required")
	}
	if migrationPath == "" {
		panic("migration path is required")
	}

	log, err := logger.InitLogger("info")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	m, err := migrate.New("file://"+migrationPath, storagePath)
	if err != nil {
		panic(err)
	}
	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply")
		return
	}
	if err != nil {
		panic(err)
	}
	version, _, _ := m.Version()
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("down", down))
}
