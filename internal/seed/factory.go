// Package seed creates demo posts for development databases, either
// generated with gofakeit or loaded from YAML fixtures.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stemweb/internal/cache"
	"stemweb/internal/middleware"
	"stemweb/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options tune generated data.
type Options struct {
	// MaxDays spreads date_posted over this many days before now.
	MaxDays int
	// Authors is the size of the generated author pool.
	Authors int
	// DryRun builds posts without writing them.
	DryRun bool
	// Seed makes generation reproducible when non-zero.
	Seed int64
}

const batchSize = 100

// Factory builds posts and persists them.
type Factory struct {
	db      *gorm.DB
	opts    Options
	faker   *gofakeit.Faker
	authors []string
	now     func() time.Time
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.Authors <= 0 {
		opts.Authors = 8
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	faker := gofakeit.New(seed)
	authors := make([]string, opts.Authors)
	for i := range authors {
		authors[i] = faker.Name()
	}

	return &Factory{db: db, opts: opts, faker: faker, authors: authors, now: time.Now}
}

// BuildPost returns an unsaved post with a date_posted in the past and a
// date_updated somewhere between then and now.
func (f *Factory) BuildPost(overrides ...func(*models.Post)) *models.Post {
	now := f.now().UTC()
	posted := now.Add(-time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute)
	updated := f.faker.DateRange(posted, now).UTC()

	post := &models.Post{
		Title:       f.faker.Sentence(f.faker.Number(3, 9)),
		Author:      f.authors[f.faker.Number(0, len(f.authors)-1)],
		Content:     f.faker.Paragraph(2, 4, 12, "\n\n"),
		DatePosted:  posted,
		DateUpdated: updated,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePosts generates and stores n posts.
func (f *Factory) CreatePosts(ctx context.Context, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, f.BuildPost())
	}
	if err := f.save(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (f *Factory) save(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		middleware.Logger.Info("[dry-run] skipping post insert", slog.Int("posts", len(posts)))
		return nil
	}
	if err := f.db.WithContext(ctx).CreateInBatches(posts, batchSize).Error; err != nil {
		return fmt.Errorf("insert posts: %w", err)
	}
	cache.InvalidatePostsList(ctx)
	middleware.Logger.Info("seeded posts", slog.Int("posts", len(posts)))
	return nil
}

// Clear deletes every post.
func Clear(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}
