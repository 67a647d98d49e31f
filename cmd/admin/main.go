// Command admin grants and revokes admin rights.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"stemweb/internal/cache"
	"stemweb/internal/config"
	"stemweb/internal/database"
	"stemweb/internal/repository"
	"stemweb/internal/service"
)

const usageText = `Usage:
  admin promote <user_id>     - Promote user to admin
  admin demote <user_id>      - Demote user from admin
  admin list-admins           - List all admins
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usageText)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// SetAdmin clears the cached user record, which needs the server's Redis.
	cache.InitRedis(cfg.RedisURL)
	defer cache.Close()

	users := service.NewUserService(repository.NewUserRepository(db))
	if err := run(context.Background(), users, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cache.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, users *service.UserService, args []string, out io.Writer) error {
	switch args[0] {
	case "promote", "demote":
		if len(args) < 2 {
			return fmt.Errorf("usage: admin %s <user_id>", args[0])
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid user id %q", args[1])
		}
		return setAdmin(ctx, users, uint(id), args[0] == "promote", out)
	case "list-admins":
		return listAdmins(ctx, users, out)
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usageText)
	}
}

func setAdmin(ctx context.Context, users *service.UserService, id uint, admin bool, out io.Writer) error {
	current, err := users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	isAdmin, err := users.IsAdmin(ctx, id)
	if err != nil {
		return err
	}
	if isAdmin == admin {
		fmt.Fprintf(out, "User %s (ID: %d) already has admin=%t\n", current.Username, current.ID, admin)
		return nil
	}

	updated, err := users.SetAdmin(ctx, id, admin)
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	verb := "promoted"
	if !admin {
		verb = "demoted"
	}
	fmt.Fprintf(out, "Successfully %s %s (ID: %d)\n", verb, updated.Username, updated.ID)
	return nil
}

func listAdmins(ctx context.Context, users *service.UserService, out io.Writer) error {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("fetch admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Fprintln(out, "No admins found in the system")
		return nil
	}
	fmt.Fprintf(out, "Admins (%d):\n", len(admins))
	for _, u := range admins {
		fmt.Fprintf(out, "  %d\t%s\t%s\n", u.ID, u.Username, u.Email)
	}
	return nil
}
