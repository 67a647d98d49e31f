// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"stemweb/internal/cache"
	"stemweb/internal/models"
	"stemweb/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByTitle(ctx context.Context, title string) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Recent(ctx context.Context, n int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// mutableColumns are the only columns an update may write.
var mutableColumns = []string{"title", "author", "content", "date_updated"}

func (r *postRepository) trace(ctx context.Context, method, op string) (context.Context, func(error)) {
	ctx, span := observability.StartRepositorySpan(ctx, "posts", method)
	done := observability.TrackQuery(op, "posts")
	return ctx, func(err error) {
		done()
		observability.EndSpan(span, err)
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, end := r.trace(ctx, "Create", "insert")
	defer func() { end(err) }()

	if err = r.db.WithContext(ctx).Create(post).Error; err != nil {
		return err
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (_ *models.Post, err error) {
	ctx, end := r.trace(ctx, "GetByID", "select")
	defer func() { end(err) }()

	var post models.Post
	err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByTitle(ctx context.Context, title string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("title = ?", title).Order("id ASC").First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns posts oldest first. A non-positive limit returns every post.
func (r *postRepository) List(ctx context.Context, limit, offset int) (_ []*models.Post, err error) {
	ctx, end := r.trace(ctx, "List", "select")
	defer func() { end(err) }()

	q := r.db.WithContext(ctx).Order("date_posted ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	posts := make([]*models.Post, 0)
	if err = q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Recent returns the n newest posts, newest first.
func (r *postRepository) Recent(ctx context.Context, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	err := r.db.WithContext(ctx).
		Order("date_posted DESC").
		Order("id DESC").
		Limit(n).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Update writes the mutable columns of post. It returns gorm.ErrRecordNotFound
// when no row has post.ID.
func (r *postRepository) Update(ctx context.Context, post *models.Post) (err error) {
	ctx, end := r.trace(ctx, "Update", "update")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Model(post).Select(mutableColumns).Updates(post)
	if err = res.Error; err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
		return err
	}
	cache.InvalidatePost(ctx, post.ID)
	cache.InvalidatePostsList(ctx)
	return nil
}

// Delete removes the post. It returns gorm.ErrRecordNotFound when no row has id.
func (r *postRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, end := r.trace(ctx, "Delete", "delete")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if err = res.Error; err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
		return err
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
