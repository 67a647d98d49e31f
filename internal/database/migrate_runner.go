package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"stemweb/internal/middleware"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE 42P01, undefined_table.
const pgUndefinedTable = "42P01"

// appliedMigration is one row of migration_logs.
type appliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (appliedMigration) TableName() string { return "migration_logs" }

const createLedgerSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// ledger records which embedded migrations a database has seen.
type ledger struct {
	db *gorm.DB
}

func (l ledger) ensure(ctx context.Context) error {
	if err := l.db.WithContext(ctx).Exec(createLedgerSQL).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return nil
}

// versions lists applied versions in ascending order. A database that has
// never been migrated reports none.
func (l ledger) versions(ctx context.Context) ([]int, error) {
	var out []int
	err := l.db.WithContext(ctx).Model(&appliedMigration{}).Order("version").Pluck("version", &out).Error
	switch {
	case err == nil:
		return out, nil
	case isMissingTableError(err):
		return nil, nil
	default:
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
}

func (l ledger) apply(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("migration %s: %w", m.String(), err)
		}
		return tx.Create(&appliedMigration{Version: m.Version, Name: m.Name}).Error
	})
}

func (l ledger) revert(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&appliedMigration{}).Error
	})
}

func isMissingTableError(err error) bool {
	if err == nil {
		return false
	}
	if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such table") {
		return true
	}
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")
}

// pendingMigrations returns the members of set whose version is not applied.
func pendingMigrations(applied []int, set []Migration) []Migration {
	var out []Migration
	for _, m := range set {
		if !slices.Contains(applied, m.Version) {
			out = append(out, m)
		}
	}
	return out
}

// validateAppliedVersions fails when the database records a migration this
// binary does not ship, which usually means an older build is running.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range slices.Sorted(slices.Values(applied)) {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("migration_logs has versions this build does not know: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// RunMigrations applies every embedded migration not yet recorded.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrationSet(ctx, db, migrations)
}

func runMigrationSet(ctx context.Context, db *gorm.DB, set []Migration) error {
	l := ledger{db: db}
	if err := l.ensure(ctx); err != nil {
		return err
	}

	applied, err := l.versions(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, set); err != nil {
		return err
	}

	for _, m := range pendingMigrations(applied, set) {
		if err := l.apply(ctx, m); err != nil {
			return err
		}
		middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	}
	return nil
}

// RollbackMigration runs the down script of an applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("no migration with version %d", version)
	}

	l := ledger{db: db}
	applied, err := l.versions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s is not applied", m.String())
	}

	if err := l.revert(ctx, *m); err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}
