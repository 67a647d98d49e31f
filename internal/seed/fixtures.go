package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"stemweb/internal/models"

	"gopkg.in/yaml.v3"
)

// Fixture is a YAML document of posts to load.
//
//	posts:
//	  - title: Test Post 1
//	    author: Carrington Muleya
//	    content: Test Post 1
//	    date_posted: 2024-03-01T09:00:00Z
type Fixture struct {
	Posts []FixturePost `yaml:"posts"`
}

// FixturePost is one post entry. A zero DatePosted means now.
type FixturePost struct {
	Title      string    `yaml:"title"`
	Author     string    `yaml:"author"`
	Content    string    `yaml:"content"`
	DatePosted time.Time `yaml:"date_posted"`
}

// LoadFixtureFile opens and parses path.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture parses a fixture and validates every entry. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &fx, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	for i, p := range fx.Posts {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("posts[%d]: %w", i, err)
		}
	}
	return &fx, nil
}

func (p FixturePost) validate() error {
	for _, field := range []struct {
		name  string
		value string
		max   int
	}{
		{"title", p.Title, models.MaxTitleLength},
		{"author", p.Author, models.MaxTitleLength},
		{"content", p.Content, 0},
	} {
		v := strings.TrimSpace(field.value)
		if v == "" {
			return fmt.Errorf("%s may not be blank", field.name)
		}
		if field.max > 0 && utf8.RuneCountInString(v) > field.max {
			return fmt.Errorf("%s exceeds %d characters", field.name, field.max)
		}
	}
	return nil
}

// ApplyFixture inserts fixture posts whose title is not already present and
// reports how many were written.
func (f *Factory) ApplyFixture(ctx context.Context, fx *Fixture) (int, error) {
	var existing []string
	if err := f.db.WithContext(ctx).Model(&models.Post{}).Pluck("title", &existing).Error; err != nil {
		return 0, fmt.Errorf("load existing titles: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, title := range existing {
		seen[title] = true
	}

	var posts []*models.Post
	for _, p := range fx.Posts {
		title := strings.TrimSpace(p.Title)
		if seen[title] {
			continue
		}
		seen[title] = true

		post := &models.Post{
			Title:   title,
			Author:  strings.TrimSpace(p.Author),
			Content: strings.TrimSpace(p.Content),
		}
		if !p.DatePosted.IsZero() {
			post.DatePosted = p.DatePosted.UTC()
			post.DateUpdated = post.DatePosted
		}
		posts = append(posts, post)
	}

	if err := f.save(ctx, posts); err != nil {
		return 0, err
	}
	return len(posts), nil
}
