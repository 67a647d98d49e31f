package server

import (
	"stemweb/internal/auth"
	"stemweb/internal/middleware"
	"stemweb/internal/models"
	"stemweb/internal/service"
	"stemweb/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// userResponse is the public view of an account.
type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Register handles POST /api/v1/auth/users/
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Registration"
// @Success 201 {object} object{id=int,username=string,email=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/auth/users/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := s.authService.Register(c.UserContext(), validation.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

// Me handles GET /api/v1/auth/users/me/
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{id=int,username=string,email=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/auth/users/me/ [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toUserResponse(user))
}

// CreateToken handles POST /api/v1/auth/jwt/create/
// @Summary Obtain a token pair
// @Description Log in with a username or an email address.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Credentials"
// @Success 200 {object} auth.Pair
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/auth/jwt/create/ [post]
func (s *Server) CreateToken(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	pair, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pair)
}

// RefreshToken handles POST /api/v1/auth/jwt/refresh/
// @Summary Refresh an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} object{access=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/auth/jwt/refresh/ [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	access, err := s.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"access": access})
}

// VerifyToken handles POST /api/v1/auth/jwt/verify/
// @Summary Verify a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{token=string} true "Token"
// @Success 200 {object} object{}
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/auth/jwt/verify/ [post]
func (s *Server) VerifyToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := s.authService.Verify(c.UserContext(), req.Token); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// Logout handles POST /api/v1/auth/jwt/logout/
// @Summary Revoke the presented access token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/auth/jwt/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals(middleware.LocalClaims).(*auth.Claims)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication credentials were not provided."))
	}

	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return s.respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
