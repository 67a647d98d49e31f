// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxTitleLength bounds Post.Title and Post.Author, in characters.
const MaxTitleLength = 256

// TimestampPrecision matches postgres TIMESTAMPTZ, so a post returned from a
// write carries the same dates as the stored row.
const TimestampPrecision = time.Microsecond

// Post is a published news article.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null;index" json:"title"`
	Author      string    `gorm:"size:256;not null" json:"author"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	DatePosted  time.Time `gorm:"not null" json:"date_posted"`
	DateUpdated time.Time `gorm:"not null" json:"date_updated"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// String renders a post as its title.
func (p Post) String() string {
	return p.Title
}

// BeforeCreate stamps both timestamps with the same instant so that
// DateUpdated never precedes DatePosted.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.DatePosted.IsZero() {
		p.DatePosted = time.Now()
	}
	p.DatePosted = p.DatePosted.UTC().Truncate(TimestampPrecision)
	p.DateUpdated = p.DateUpdated.UTC().Truncate(TimestampPrecision)
	if p.DateUpdated.Before(p.DatePosted) {
		p.DateUpdated = p.DatePosted
	}
	return nil
}

// Touch refreshes DateUpdated, clamped so it is never earlier than DatePosted.
func (p *Post) Touch(now time.Time) {
	now = now.UTC().Truncate(TimestampPrecision)
	if now.Before(p.DatePosted) {
		now = p.DatePosted
	}
	p.DateUpdated = now
}
