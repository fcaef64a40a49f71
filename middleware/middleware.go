package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/config"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
	"gorm.io/gorm"
)

const (
	ctxKeyDB       = "db"
	ctxKeyUserID   = "user_id"
	ctxKeyUserRole = "user_role"
	ctxKeyEmail    = "user_email"

	// SessionTokenHeader carries the bearer session token on every
	// authenticated request.
	SessionTokenHeader = "session-token"
)

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware injects the shared gorm DB handle into the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyDB, db)
		c.Next()
	}
}

// GetDB returns the request-scoped gorm DB handle, or nil if the
// DatabaseMiddleware did not run.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(ctxKeyDB)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// GetUserID returns the authenticated user's id from the request context.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetUserRole returns the authenticated user's role from the request context.
func GetUserRole(c *gin.Context) (model.Role, bool) {
	v, ok := c.Get(ctxKeyUserRole)
	if !ok {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok
}

// GetUserEmail returns the authenticated user's email from the request
// context, when the auth path resolved it.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ctxKeyEmail)
}

// SetAuthContextForTesting stamps an authenticated identity onto the request
// context without a session lookup. This should only be used in tests.
func SetAuthContextForTesting(c *gin.Context, userID uint, role model.Role) {
	c.Set(ctxKeyUserID, userID)
	c.Set(ctxKeyUserRole, role)
}

// SessionAuth validates the session token on every request: Redis fast path
// first (session:<token> -> "userID:ROLE"), then the sessions table.
// Requests without a valid, unexpired session are rejected with 401.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionTokenHeader)
		if token == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Missing session token", Err: fmt.Errorf("no session token header")})
			c.Abort()
			return
		}

		if userID, role, ok := lookupSessionRedis(token); ok {
			stampAuthContext(c, userID, role)
			c.Next()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
			c.Abort()
			return
		}

		userID, role, email, err := lookupSessionDB(db, token)
		if err != nil {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid or expired session")
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid or expired session", Err: fmt.Errorf("session not found")})
			c.Abort()
			return
		}

		c.Set(ctxKeyEmail, email)
		stampAuthContext(c, userID, role)
		c.Next()
	}
}

func stampAuthContext(c *gin.Context, userID uint, role model.Role) {
	c.Set(ctxKeyUserID, userID)
	c.Set(ctxKeyUserRole, role)
}

// lookupSessionRedis resolves a session token from the Redis cache.
// The value format "userID:ROLE" is written at login time.
func lookupSessionRedis(token string) (uint, model.Role, bool) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	val, err := rdb.Get(ctx, fmt.Sprintf("session:%s", token)).Result()
	if err != nil {
		return 0, "", false
	}
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 || !model.ValidRole(parts[1]) {
		return 0, "", false
	}
	var userID uint
	if _, err := fmt.Sscanf(parts[0], "%d", &userID); err != nil || userID == 0 {
		return 0, "", false
	}
	return userID, model.Role(parts[1]), true
}

// lookupSessionDB joins sessions and users to resolve an unexpired token.
func lookupSessionDB(db *gorm.DB, token string) (uint, model.Role, string, error) {
	var result struct {
		UserID uint   `gorm:"column:user_id"`
		Role   string `gorm:"column:role"`
		Email  string `gorm:"column:email"`
	}
	err := db.Table("sessions").
		Select("sessions.user_id, users.role, users.email").
		Joins("JOIN users ON sessions.user_id = users.id").
		Where("session_token = ? AND expires_at > ? AND sessions.deleted_at IS NULL", token, time.Now()).
		First(&result).Error
	if err != nil {
		return 0, "", "", err
	}

	util.IdentityCacheSet(result.UserID, util.CachedIdentity{Email: result.Email, Role: result.Role})
	return result.UserID, model.Role(result.Role), result.Email, nil
}

// RequireRole rejects the request with 403 unless the authenticated user's
// role is one of the allowed ones. Must run after SessionAuth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("role not found in context")})
			c.Abort()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		util.LogUnauthorizedAccess(fmt.Sprintf("%d", userID), GetUserEmail(c), c.ClientIP(), c.Request.URL.Path, fmt.Sprintf("role %s not permitted", role))
		util.CallForbidden(c, util.APIErrorParams{Msg: "Insufficient permissions", Err: fmt.Errorf("role %s is not allowed", role)})
		c.Abort()
	}
}
