package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stemweb/internal/models"
	"stemweb/internal/serializer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, uint) (*models.Post, error)
	getByTitleFn func(context.Context, string) (*models.Post, error)
	listFn       func(context.Context, int, int) ([]*models.Post, error)
	recentFn     func(context.Context, int) ([]*models.Post, error)
	updateFn     func(context.Context, *models.Post) error
	deleteFn     func(context.Context, uint) error
	countFn      func(context.Context) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByTitle(ctx context.Context, title string) (*models.Post, error) {
	return s.getByTitleFn(ctx, title)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Recent(ctx context.Context, n int) ([]*models.Post, error) {
	return s.recentFn(ctx, n)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:     func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:    func(_ context.Context, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		getByTitleFn: func(_ context.Context, _ string) (*models.Post, error) { return &models.Post{}, nil },
		listFn:       func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		recentFn:     func(_ context.Context, _ int) ([]*models.Post, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
		countFn:      func(_ context.Context) (int64, error) { return 0, nil },
	}
}

func strPtr(s string) *string { return &s }

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestPostService_ListPostsNeverNil(t *testing.T) {
	svc := NewPostService(noopPostRepo())
	posts, err := svc.ListPosts(context.Background(), ListPostsInput{Limit: -3, Offset: -1})
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestPostService_ListPostsPassesPaging(t *testing.T) {
	repo := noopPostRepo()
	var gotLimit, gotOffset int
	repo.listFn = func(_ context.Context, limit, offset int) ([]*models.Post, error) {
		gotLimit, gotOffset = limit, offset
		return []*models.Post{{Title: "a"}}, nil
	}
	posts, err := NewPostService(repo).ListPosts(context.Background(), ListPostsInput{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)
}

func TestPostService_GetPostNotFound(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return nil, gorm.ErrRecordNotFound }

	_, err := NewPostService(repo).GetPost(context.Background(), 12)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestPostService_GetPostInternal(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return nil, errors.New("conn refused") }

	_, err := NewPostService(repo).GetPost(context.Background(), 12)
	assertAppErrorCode(t, err, models.CodeInternal)
}

func TestPostService_CreatePost(t *testing.T) {
	tests := []struct {
		name     string
		in       CreatePostInput
		wantCode string
	}{
		{
			name: "valid",
			in:   CreatePostInput{Author: "Carrington Muleya", Post: serializer.PostInput{Title: strPtr("Test Post 1"), Content: strPtr("Test Post 1")}},
		},
		{
			name:     "title too long",
			in:       CreatePostInput{Author: "a", Post: serializer.PostInput{Title: strPtr(strings.Repeat("t", 257)), Content: strPtr("c")}},
			wantCode: models.CodeValidation,
		},
		{
			name:     "missing content",
			in:       CreatePostInput{Author: "a", Post: serializer.PostInput{Title: strPtr("t")}},
			wantCode: models.CodeValidation,
		},
		{
			name:     "blank author",
			in:       CreatePostInput{Author: "  ", Post: serializer.PostInput{Title: strPtr("t"), Content: strPtr("c")}},
			wantCode: models.CodeValidation,
		},
		{
			name:     "author too long",
			in:       CreatePostInput{Author: strings.Repeat("a", 257), Post: serializer.PostInput{Title: strPtr("t"), Content: strPtr("c")}},
			wantCode: models.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPostRepo()
			var stored *models.Post
			repo.createFn = func(_ context.Context, p *models.Post) error {
				p.ID = 1
				stored = p
				return nil
			}

			post, err := NewPostService(repo).CreatePost(context.Background(), tt.in)
			if tt.wantCode != "" {
				assertAppErrorCode(t, err, tt.wantCode)
				assert.Nil(t, stored)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Carrington Muleya", post.Author)
			assert.Equal(t, "Test Post 1", post.Title)
			assert.Same(t, stored, post)
		})
	}
}

func TestPostService_CreatePostRepoFailureIsInternal(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, _ *models.Post) error { return errors.New("disk full") }

	_, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{
		Author: "a", Post: serializer.PostInput{Title: strPtr("t"), Content: strPtr("c")},
	})
	assertAppErrorCode(t, err, models.CodeInternal)
}

func TestPostService_UpdatePostKeepsDatePosted(t *testing.T) {
	posted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, Title: "old", Author: "a", Content: "old body", DatePosted: posted, DateUpdated: posted}, nil
	}
	var saved *models.Post
	repo.updateFn = func(_ context.Context, p *models.Post) error {
		saved = p
		return nil
	}

	svc := NewPostService(repo)
	svc.now = func() time.Time { return posted.Add(-time.Hour) }

	post, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		PostID:  3,
		Post:    serializer.PostInput{Title: strPtr("new")},
		Partial: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", post.Title)
	assert.Equal(t, "old body", post.Content)
	assert.Equal(t, posted, saved.DatePosted)
	assert.Equal(t, posted, saved.DateUpdated, "clock skew must not push date_updated before date_posted")

	svc.now = func() time.Time { return posted.Add(time.Hour) }
	post, err = svc.UpdatePost(context.Background(), UpdatePostInput{PostID: 3, Post: serializer.PostInput{Title: strPtr("t"), Content: strPtr("c")}})
	require.NoError(t, err)
	assert.Equal(t, posted.Add(time.Hour), post.DateUpdated)
}

func TestPostService_UpdatePostErrors(t *testing.T) {
	t.Run("full update requires all fields", func(t *testing.T) {
		_, err := NewPostService(noopPostRepo()).UpdatePost(context.Background(), UpdatePostInput{
			PostID: 1, Post: serializer.PostInput{Title: strPtr("only title")},
		})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return nil, gorm.ErrRecordNotFound }
		_, err := NewPostService(repo).UpdatePost(context.Background(), UpdatePostInput{PostID: 1, Partial: true})
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("row vanished before write", func(t *testing.T) {
		repo := noopPostRepo()
		repo.updateFn = func(_ context.Context, _ *models.Post) error { return gorm.ErrRecordNotFound }
		_, err := NewPostService(repo).UpdatePost(context.Background(), UpdatePostInput{PostID: 1, Partial: true})
		assertAppErrorCode(t, err, models.CodeNotFound)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	repo := noopPostRepo()
	repo.deleteFn = func(_ context.Context, id uint) error {
		if id == 404 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}
	svc := NewPostService(repo)

	assert.NoError(t, svc.DeletePost(context.Background(), 1))
	assertAppErrorCode(t, svc.DeletePost(context.Background(), 404), models.CodeNotFound)
}
