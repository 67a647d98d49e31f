// Package service holds the application's use cases over the repositories.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"stemweb/internal/cache"
	"stemweb/internal/models"
	"stemweb/internal/observability"
	"stemweb/internal/repository"
	"stemweb/internal/serializer"
)

type PostService struct {
	postRepo repository.PostRepository
	now      func() time.Time
}

type ListPostsInput struct {
	Limit  int
	Offset int
}

type CreatePostInput struct {
	Author string
	Post   serializer.PostInput
}

type UpdatePostInput struct {
	PostID  uint
	Post    serializer.PostInput
	Partial bool
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo, now: time.Now}
}

// ListPosts returns posts oldest first. The slice is never nil.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if in.Limit < 0 {
		in.Limit = 0
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	var posts []*models.Post
	err := cache.Aside(ctx, cache.PostsListKey(in.Limit, in.Offset), &posts, cache.ListTTL, func() error {
		var err error
		posts, err = s.postRepo.List(ctx, in.Limit, in.Offset)
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapPostError(err, id)
	}
	return post, nil
}

// RecentPosts returns up to n posts, newest first.
func (s *PostService) RecentPosts(ctx context.Context, n int) ([]*models.Post, error) {
	posts, err := s.postRepo.Recent(ctx, n)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (s *PostService) CountPosts(ctx context.Context) (int64, error) {
	n, err := s.postRepo.Count(ctx)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	defer func() { observability.RecordPostOperation("create", err) }()

	if err := serializer.ValidatePost(in.Post, false); err != nil {
		return nil, err
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		return nil, models.NewFieldValidationError(map[string][]string{"author": {"This field may not be blank."}})
	}
	if utf8.RuneCountInString(author) > models.MaxTitleLength {
		return nil, models.NewFieldValidationError(map[string][]string{"author": {"Ensure this field has no more than 256 characters."}})
	}

	post = &models.Post{Author: author}
	in.Post.ApplyTo(post)

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

// UpdatePost applies a full or partial write. DatePosted never changes and
// DateUpdated is refreshed even when no field changed.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	defer func() { observability.RecordPostOperation("update", err) }()

	if err := serializer.ValidatePost(in.Post, in.Partial); err != nil {
		return nil, err
	}

	post, err = s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, mapPostError(err, in.PostID)
	}

	in.Post.ApplyTo(post)
	post.Touch(s.now())

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, mapPostError(err, in.PostID)
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id uint) (err error) {
	defer func() { observability.RecordPostOperation("delete", err) }()

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return mapPostError(err, id)
	}
	return nil
}

func mapPostError(err error, id uint) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case repository.IsNotFound(err):
		return models.NewNotFoundError("Post", id)
	default:
		return models.NewInternalError(err)
	}
}
