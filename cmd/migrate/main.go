// Package main applies or rolls back the PostgreSQL schema
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/migrations"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/postgres"
	"github.com/recipesimplifier/api/pkg/logger"
)

const usage = `usage: migrate [-config path] <command>

commands:
  up             apply all pending migrations
  down           roll back the last migration
  version        print the applied version
  force VERSION  mark VERSION as applied and clear the dirty flag`

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations target postgres, configured driver is %q", cfg.Database.Driver)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.App.LogLevel,
		Format:  "console",
		Service: "migrate",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := postgres.Open(cfg, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	m, err := migrations.New(sqlDB, cfg.Database.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
