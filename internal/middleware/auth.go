package middleware

import (
	"strings"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"
	"github.com/EmilynnJ/ccodeseer/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxSubjectID = "subject_id"
	ctxRole      = "subject_role"
)

// identityClaims is the shape of the token the external identity
// collaborator hands callers — verified here, never issued here
// (spec.md §1 Non-goals: the core trusts but does not mint these).
type identityClaims struct {
	jwt.RegisteredClaims
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// Auth verifies the bearer token against the identity collaborator's
// shared verification key, upserts the local User row on first sight,
// and stashes the resolved subject id/role on the gin context for
// downstream handlers and the rate limiter.
type Auth struct {
	verificationKey []byte
	users           *repository.UserRepository
}

func NewAuth(verificationKey string, users *repository.UserRepository) *Auth {
	return &Auth{verificationKey: []byte(verificationKey), users: users}
}

func (a *Auth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Fail(c, apperr.New(apperr.NotAuthorized, "missing bearer token"))
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &identityClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return a.verificationKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			response.Fail(c, apperr.Wrap(apperr.NotAuthorized, "invalid token", err))
			c.Abort()
			return
		}

		subject := claims.Subject
		if subject == "" {
			response.Fail(c, apperr.New(apperr.NotAuthorized, "token missing subject"))
			c.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = model.RoleClient
		}
		if err := a.users.UpsertFromIdentity(c.Request.Context(), &model.User{
			ID:          subject,
			AuthSubject: subject,
			Role:        role,
			DisplayName: claims.DisplayName,
		}); err != nil {
			response.Fail(c, apperr.Wrap(apperr.Transient, "sync identity", err))
			c.Abort()
			return
		}

		c.Set(ctxSubjectID, subject)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRole wraps Require with a role check for admin-only routes.
// SetupRouter mounts no route behind it.
func (a *Auth) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.Require()(c)
		if c.IsAborted() {
			return
		}
		if Role(c) != role {
			response.Fail(c, apperr.New(apperr.NotAuthorized, "insufficient role"))
			c.Abort()
		}
	}
}

// SubjectID reads the resolved subject id set by Auth.Require, or ""
// if the request passed through without authentication.
func SubjectID(c *gin.Context) string {
	v, ok := c.Get(ctxSubjectID)
	if !ok {
		return ""
	}
	return v.(string)
}

// Role reads the resolved subject role set by Auth.Require.
func Role(c *gin.Context) string {
	v, ok := c.Get(ctxRole)
	if !ok {
		return ""
	}
	return v.(string)
}
