package server

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"

	"stemweb/internal/featureflags"
	"stemweb/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

const homepageRecentCount = 5

//go:embed templates/home.html
var templateFS embed.FS

var homeTemplate = template.Must(template.ParseFS(templateFS, "templates/home.html"))

type homePage struct {
	Recent []string
}

// Home handles GET /
func (s *Server) Home(c *fiber.Ctx) error {
	var page homePage

	if s.featureFlags.Enabled(featureflags.HomepageRecentPosts, 0) {
		posts, err := s.postService.RecentPosts(c.UserContext(), homepageRecentCount)
		if err != nil {
			// The welcome page still renders without the list.
			middleware.Logger.WarnContext(c.UserContext(), "homepage recent posts unavailable",
				slog.String("error", err.Error()))
		}
		for _, p := range posts {
			page.Recent = append(page.Recent, p.String())
		}
	}

	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, page); err != nil {
		return s.respondError(c, err)
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
