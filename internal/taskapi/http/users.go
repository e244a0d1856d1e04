package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskman/internal/taskapi/domain"
	"taskman/internal/taskapi/usecase"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		RegisteredAt: u.RegisteredAt,
	}
}

type validateRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	user, err := s.users.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleCurrentUser(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	user, err := s.users.Get(c.Request.Context(), principal.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleGetUser(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	id := c.Param("id")
	// Users may read their own profile only; machine clients have no
	// business here either.
	if id != principal.Subject {
		writeError(c, domain.ErrForbidden)
		return
	}
	user, err := s.users.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// handleValidateCredentials serves the token authority's password checks.
// The response shape is fixed; it always returns 200 so callers cannot
// probe account existence through status codes.
func (s *Server) handleValidateCredentials(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result := s.users.ValidateCredentials(c.Request.Context(), req.Identifier, req.Password)
	c.JSON(http.StatusOK, result)
}
