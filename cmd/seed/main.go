// Command seed fills a development database with posts.
package main

import (
	"context"
	"flag"
	"log"

	"stemweb/internal/cache"
	"stemweb/internal/config"
	"stemweb/internal/database"
	"stemweb/internal/seed"
)

func main() {
	n := flag.Int("n", 25, "Number of generated posts")
	fixture := flag.String("fixture", "", "YAML fixture file to load instead of generated posts")
	clean := flag.Bool("clean", false, "Delete all posts before seeding")
	dryRun := flag.Bool("dry-run", false, "Build posts without writing them")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible output")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cache.InitRedis(cfg.RedisURL)
	defer cache.Close()

	ctx := context.Background()
	if *clean && !*dryRun {
		if err := seed.Clear(ctx, db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	f := seed.NewFactory(db, seed.Options{DryRun: *dryRun, Seed: *seedValue})

	if *fixture != "" {
		fx, err := seed.LoadFixtureFile(*fixture)
		if err != nil {
			log.Fatalf("Fixture load failed: %v", err)
		}
		written, err := f.ApplyFixture(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("Loaded %d of %d fixture posts from %s", written, len(fx.Posts), *fixture)
		return
	}

	posts, err := f.CreatePosts(ctx, *n)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d posts", len(posts))
}
