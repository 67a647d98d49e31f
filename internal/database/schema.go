package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"stemweb/internal/config"
	"stemweb/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE. An empty value means hybrid.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what ApplySchema would do, as reported by cmd/migrate.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

func schemaMode(cfg *config.Config) string {
	if m := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); m != "" {
		return m
	}
	return SchemaModeHybrid
}

// schemaPolicy maps the configured mode onto the two schema steps. The
// embedded SQL targets postgres, so sqlite only ever gets AutoMigrate.
// Protected environments never AutoMigrate unless destructive changes were
// explicitly allowed.
func schemaPolicy(cfg *config.Config, dialect string) (runSQL bool, runAuto bool, err error) {
	mode := schemaMode(cfg)
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	if dialect == "sqlite" {
		if mode == SchemaModeSQL {
			return false, false, fmt.Errorf("schema mode %q needs postgres, connected to %s", mode, dialect)
		}
		return false, true, nil
	}

	switch mode {
	case SchemaModeHybrid:
		return true, !protected, nil
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("schema mode auto is disabled in %s; set DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE to override", cfg.Env)
		}
		return false, true, nil
	}
	return false, false, fmt.Errorf("unknown schema mode %q", mode)
}

// ApplySchema brings the database schema up to date for cfg.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg, db.Dialector.Name())
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	log := middleware.Logger.With(slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))
	if cfg.DBAutoMigrateAllowDestructive {
		log.Warn("AutoMigrate running with destructive changes allowed")
	}
	log.Info("Running AutoMigrate", slog.Int("models", len(PersistentModels())))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the policy for cfg and, when SQL migrations are in
// play, which embedded migrations are still pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg, db.Dialector.Name())
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if runSQL {
		applied, err := ledger{db: db}.versions(ctx)
		if err != nil {
			return nil, err
		}
		status.AppliedVersions = applied
		status.PendingMigrations = pendingMigrations(applied, GetMigrations())
	}
	return status, nil
}
