package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sifnet/storefront/internal/infrastructure/config"
	"github.com/sifnet/storefront/internal/infrastructure/logger"
	"github.com/sifnet/storefront/internal/infrastructure/persistence"
	"github.com/sifnet/storefront/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := open(cfg, log, logLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer db.Close()

	log.Info("Storage CLI started", zap.String("command", command), zap.String("driver", cfg.Storage.Driver))

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Storage tables are up to date")

	case "status":
		var rows []models.KeyValue
		if err := db.DB.Order("storage_key").Find(&rows).Error; err != nil {
			log.Fatal("Failed to read storage", zap.Error(err))
		}
		log.Info("Stored keys", zap.Int("count", len(rows)))
		for _, row := range rows {
			fmt.Printf("  - %s (%d bytes, updated %s)\n", row.Key, len(row.Value), row.UpdatedAt.Format(time.RFC3339))
		}

	case "reset":
		keys := []string{cfg.Storage.CartKey, cfg.Auth.UserKey, cfg.Auth.TokenKey}
		if len(args) > 1 {
			keys = args[1:]
		}
		kv := persistence.NewGormKeyValueStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, key := range keys {
			if err := kv.Delete(ctx, key); err != nil {
				log.Fatal("Failed to delete key", zap.String("key", key), zap.Error(err))
			}
			log.Info("Key deleted", zap.String("key", key))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// open connects to the SQL storage the configuration selects
func open(cfg *config.Config, log *zap.Logger, level string) (*persistence.Database, error) {
	gormLog := persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(level)))

	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		return persistence.NewSQLiteDatabase(cfg.Storage.Path, gormLog)
	case config.StoragePostgres:
		return persistence.NewDatabase(&cfg.Database, gormLog)
	default:
		return nil, fmt.Errorf("storage driver %q has no SQL tables; use sqlite or postgres", cfg.Storage.Driver)
	}
}

func printUsage() {
	fmt.Println(`Storefront storage CLI

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up              Create or update the key-value table
  status          List the stored keys
  reset [key...]  Delete the cart and session keys, or the given keys

Flags:
  -log-level      Log level (debug, info, warn, error)

Environment:
  STOREFRONT_STORAGE_DRIVER must be sqlite or postgres. Connection settings
  are read the same way the server reads them.`)
}
