package server

import (
	"fmt"

	"stemweb/internal/middleware"
	"stemweb/internal/serializer"
	"stemweb/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /api/v1/posts/
// @Summary List posts
// @Description Every post, oldest first. limit and offset are optional.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of posts"
// @Param offset query int false "Posts to skip"
// @Success 200 {array} serializer.PostResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/posts/ [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePagination(c)

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(serializer.FromPosts(posts))
}

// GetPost handles GET /api/v1/posts/:id/
// @Summary Retrieve a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} serializer.PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/posts/{id}/ [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return notFound(c)
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(serializer.FromPost(post))
}

// CreatePost handles POST /api/v1/posts/
// @Summary Create a post
// @Description The author is the authenticated user. date_posted is read-only.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string} true "Post"
// @Success 201 {object} serializer.PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/posts/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in, err := serializer.DecodePost(c.Body())
	if err != nil {
		return s.respondError(c, err)
	}

	username, _ := c.Locals(middleware.LocalUsername).(string)
	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Author: username,
		Post:   in,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	c.Location(fmt.Sprintf("/api/v1/posts/%d/", post.ID))
	return c.Status(fiber.StatusCreated).JSON(serializer.FromPost(post))
}

// UpdatePost handles PUT /api/v1/posts/:id/
// @Summary Replace a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{title=string,content=string} true "Post"
// @Success 200 {object} serializer.PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/posts/{id}/ [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	return s.writePost(c, false)
}

// PatchPost handles PATCH /api/v1/posts/:id/
// @Summary Partially update a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{title=string,content=string} true "Fields to change"
// @Success 200 {object} serializer.PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/posts/{id}/ [patch]
func (s *Server) PatchPost(c *fiber.Ctx) error {
	return s.writePost(c, true)
}

func (s *Server) writePost(c *fiber.Ctx, partial bool) error {
	id, ok := parseID(c, "id")
	if !ok {
		return notFound(c)
	}

	in, err := serializer.DecodePost(c.Body())
	if err != nil {
		return s.respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:  id,
		Post:    in,
		Partial: partial,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(serializer.FromPost(post))
}

// DeletePost handles DELETE /api/v1/posts/:id/
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/posts/{id}/ [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return notFound(c)
	}

	if err := s.postService.DeletePost(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
