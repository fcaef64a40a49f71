package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/medisure/claims-api/config"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newInMemoryDB creates an in-memory sqlite DB and runs required migrations for tests.
func newInMemoryDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		t.Fatalf("failed to auto-migrate: %v", err)
	}
	return db
}

type testSessionParams struct {
	role      model.Role
	token     string
	expiresAt time.Time
}

// createTestUserAndSession creates a user and associated session in the provided DB.
func createTestUserAndSession(t *testing.T, db *gorm.DB, params testSessionParams) (model.User, model.Session) {
	user := model.User{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "hashedpassword",
		Role:     params.role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	if params.expiresAt.IsZero() {
		params.expiresAt = time.Now().Add(time.Hour)
	}
	session := model.Session{
		SessionToken: params.token,
		UserID:       user.ID,
		ExpiresAt:    params.expiresAt,
		ClientIP:     "127.0.0.1",
		Browser:      "test-browser",
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return user, session
}

func runSessionAuthRequest(db *gorm.DB, token string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	if db != nil {
		r.Use(DatabaseMiddleware(db))
	}
	r.GET("/test", SessionAuth(), handler)
	req := httptest.NewRequest("GET", "/test", nil)
	if token != "" {
		req.Header.Set(SessionTokenHeader, token)
	}
	r.ServeHTTP(w, req)
	return w
}

func setupRedisMock(t *testing.T) redismock.ClientMock {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTesting(rdb)
	t.Cleanup(func() {
		config.SetRedisClientForTesting(nil)
	})
	return mock
}

func assertAuthContext(t *testing.T, c *gin.Context, wantID uint, wantRole model.Role, msg string) {
	t.Helper()
	id, ok := GetUserID(c)
	if !ok || id != wantID {
		t.Errorf("expected user id %d, got %v (ok=%v)%s", wantID, id, ok, msg)
	}
	role, ok := GetUserRole(c)
	if !ok || role != wantRole {
		t.Errorf("expected role %s, got %v (ok=%v)%s", wantRole, role, ok, msg)
	}
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	util.InitIdentityCache(64)
	m.Run()
}

func TestDatabaseMiddlewareAndGetDB(t *testing.T) {
	r := gin.New()
	db := &gorm.DB{}
	r.Use(DatabaseMiddleware(db))
	r.GET("/testdb", func(c *gin.Context) {
		if GetDB(c) != db {
			c.AbortWithStatus(500)
			return
		}
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/testdb", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 from handler with DB set, got %d", w.Code)
	}
}

func TestCORSMiddleware_PreflightShortCircuits(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/x", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS headers to be set")
	}
}

func TestSessionAuth_MissingToken(t *testing.T) {
	w := runSessionAuthRequest(&gorm.DB{}, "", func(c *gin.Context) { c.Status(200) })
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when session token missing, got %d", w.Code)
	}
}

func TestSessionAuth_RedisFastPath(t *testing.T) {
	mock := setupRedisMock(t)
	mock.ExpectGet("session:valid-token").SetVal("123:DOCTOR")

	w := runSessionAuthRequest(&gorm.DB{}, "valid-token", func(c *gin.Context) {
		assertAuthContext(t, c, 123, model.RoleDoctor, "")
		c.Status(200)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via Redis fast path, got %d", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestSessionAuth_RedisMalformedValueFallsBackToDB(t *testing.T) {
	mock := setupRedisMock(t)
	// A value without a known role is treated as a miss.
	mock.ExpectGet("session:malformed-token").SetVal("123:SUPERUSER")

	db := newInMemoryDB(t)
	user, _ := createTestUserAndSession(t, db, testSessionParams{role: model.RoleInsurance, token: "malformed-token"})

	w := runSessionAuthRequest(db, "malformed-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RoleInsurance, " from DB fallback")
		c.Status(200)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via DB fallback, got %d", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestSessionAuth_RedisNotAvailableUsesDB(t *testing.T) {
	config.SetRedisClientForTesting(nil)

	db := newInMemoryDB(t)
	user, _ := createTestUserAndSession(t, db, testSessionParams{role: model.RolePatient, token: "db-only-token"})

	w := runSessionAuthRequest(db, "db-only-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RolePatient, " from DB")
		c.Status(200)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via DB lookup, got %d", w.Code)
	}
}

func TestSessionAuth_ExpiredSessionRejected(t *testing.T) {
	config.SetRedisClientForTesting(nil)

	db := newInMemoryDB(t)
	createTestUserAndSession(t, db, testSessionParams{
		role: model.RolePatient, token: "expired-token",
		expiresAt: time.Now().Add(-time.Hour),
	})

	w := runSessionAuthRequest(db, "expired-token", func(c *gin.Context) { c.Status(200) })
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired session, got %d", w.Code)
	}
}

func TestSessionAuth_UnknownTokenRejected(t *testing.T) {
	config.SetRedisClientForTesting(nil)

	db := newInMemoryDB(t)
	w := runSessionAuthRequest(db, "nope", func(c *gin.Context) { c.Status(200) })
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	run := func(stamp bool, role model.Role, allowed ...model.Role) int {
		w := httptest.NewRecorder()
		_, r := gin.CreateTestContext(w)
		r.GET("/guarded", func(c *gin.Context) {
			if stamp {
				SetAuthContextForTesting(c, 1, role)
			}
			c.Next()
		}, RequireRole(allowed...), func(c *gin.Context) { c.Status(200) })
		req := httptest.NewRequest("GET", "/guarded", nil)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := run(true, model.RoleBank, model.RoleBank); code != 200 {
		t.Errorf("bank on bank-only route: expected 200, got %d", code)
	}
	if code := run(true, model.RolePatient, model.RoleBank); code != http.StatusForbidden {
		t.Errorf("patient on bank-only route: expected 403, got %d", code)
	}
	if code := run(true, model.RoleDoctor, model.RoleDoctor, model.RoleInsurance); code != 200 {
		t.Errorf("doctor on doctor/insurance route: expected 200, got %d", code)
	}
	if code := run(false, "", model.RoleBank); code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request: expected 401, got %d", code)
	}
}
