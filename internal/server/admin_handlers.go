package server

import (
	"stemweb/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminSummary handles GET /admin/
func (s *Server) AdminSummary(c *fiber.Ctx) error {
	ctx := c.UserContext()

	posts, err := s.postService.CountPosts(ctx)
	if err != nil {
		return s.respondError(c, err)
	}
	users, err := s.userService.CountUsers(ctx)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": posts,
		"users": users,
	})
}

// AdminListPosts handles GET /admin/posts/ and returns full records.
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// AdminGetPost handles GET /admin/posts/:id/
func (s *Server) AdminGetPost(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return notFound(c)
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// AdminDeletePost handles DELETE /admin/posts/:id/
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return notFound(c)
	}
	if err := s.postService.DeletePost(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListUsers handles GET /admin/users/
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c)
	users, err := s.userService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
