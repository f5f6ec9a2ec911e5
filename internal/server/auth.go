package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/pktdms/docgate/internal/auth/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	result, err := s.authSvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   result.Token,
		"user": gin.H{
			"id":       result.User.ID.String(),
			"username": result.User.Username,
			"role":     result.User.Role,
		},
	})
}
