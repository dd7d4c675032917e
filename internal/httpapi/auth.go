package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusattend/internal/auth"
	"campusattend/internal/logging"
)

// ---------- Auth ----------

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (h *Handler) issueTokens(c *gin.Context, status int, username, role string) {
	tokens, err := auth.Issue(username, role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"role":          role,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	u, err := auth.Authenticate(c.Request.Context(), h.store, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.issueTokens(c, http.StatusOK, u.Username, u.Role)
}

// Register creates a teacher account. Only admins may pick another role.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	if len(req.Password) < 8 {
		writeServiceError(c, &ValidationError{Msg: "password must be at least 8 characters"})
		return
	}

	role := auth.RoleTeacher
	if req.Role != "" && req.Role != role {
		claims, ok := auth.ClaimsFrom(c)
		if !ok || claims.Role != auth.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins may assign roles"})
			return
		}
		if req.Role != auth.RoleAdmin {
			writeServiceError(c, &ValidationError{Msg: "unknown role " + req.Role})
			return
		}
		role = req.Role
	}

	u, err := auth.Register(c.Request.Context(), h.store, strings.TrimSpace(req.Username), req.Password, role)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.issueTokens(c, http.StatusCreated, u.Username, u.Role)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer, auth.KindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	// The account may have been removed since the token was issued.
	u, err := h.store.GetUserByUsername(c.Request.Context(), claims.Subject)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if u == nil {
		writeServiceError(c, auth.ErrInvalidCredentials)
		return
	}
	h.issueTokens(c, http.StatusOK, u.Username, u.Role)
}
