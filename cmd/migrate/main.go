// Command migrate applies, inspects and rolls back the database schema.
//
//	migrate up             apply pending SQL migrations
//	migrate auto           run GORM AutoMigrate over the persistent models
//	migrate status         print the schema policy and pending migrations
//	migrate down <version> revert one applied migration
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"stemweb/internal/config"
	"stemweb/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down> [version]")

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string, out io.Writer) error

var commands = map[string]command{
	"up":     migrateUp,
	"auto":   migrateAuto,
	"status": migrateStatus,
	"down":   migrateDown,
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		log.Fatal(errUsage)
	}
	cmd, ok := commands[strings.ToLower(os.Args[1])]
	if !ok {
		log.Fatal(errUsage)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := cmd(context.Background(), db, cfg, os.Args[2:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string, out io.Writer) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "migrations applied")
	return err
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string, out io.Writer) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "automigrate complete")
	return err
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string, out io.Writer) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "mode:       %s\n", st.Mode)
	fmt.Fprintf(out, "env:        %s\n", st.Environment)
	fmt.Fprintf(out, "sql:        %t\n", st.WillRunSQL)
	fmt.Fprintf(out, "automigrate: %t\n", st.WillRunAutoMigrate)
	fmt.Fprintf(out, "applied:    %d\n", len(st.AppliedVersions))
	for _, m := range st.PendingMigrations {
		fmt.Fprintf(out, "pending:    %s\n", m.String())
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad version %q", args[0])
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "rolled back %06d\n", version)
	return err
}
