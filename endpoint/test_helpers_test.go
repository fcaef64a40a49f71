package endpoint_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/config"
	"github.com/medisure/claims-api/endpoint"
	"github.com/medisure/claims-api/middleware"
	"github.com/medisure/claims-api/model"
	"gorm.io/gorm"
)

type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// SetupTestServer initializes the in-memory DB, migrates models and returns a
// Gin router wired with the full route table, plus a cleanup function that
// drops the tables. It calls t.Fatalf on fatal errors.
func SetupTestServer(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}

	testModels := []interface{}{
		&model.User{}, &model.Session{}, &model.Claim{}, &model.ClaimNumber{},
		&model.Appointment{}, &model.Payment{}, &model.Document{},
		&model.PatientReport{}, &model.SecurityLog{},
	}

	if err := db.AutoMigrate(testModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	r := gin.New()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))

	// Public routes used by tests
	r.POST("/signup", endpoint.Signup)
	r.POST("/login", endpoint.Login)
	r.GET("/token/validate", endpoint.ValidateToken)

	// Protected routes used by tests
	auth := r.Group("/")
	auth.Use(middleware.SessionAuth())
	{
		auth.POST("/logout", endpoint.Logout)

		auth.GET("/user", endpoint.GetCurrentUser)
		auth.PUT("/user/complete-profile", endpoint.CompleteProfile)
		auth.GET("/user/doctors", endpoint.ListDoctors)

		auth.POST("/claim", endpoint.CreateClaim)
		auth.GET("/claim", endpoint.ListClaims)
		auth.GET("/claim/:id", endpoint.GetClaim)
		auth.PATCH("/claim/:id", endpoint.UpdateClaimStatus)

		auth.POST("/appointment", endpoint.CreateAppointment)
		auth.GET("/appointment", endpoint.ListAppointments)
		auth.PATCH("/appointment/:id", endpoint.UpdateAppointmentStatus)

		auth.GET("/document", endpoint.ListDocuments)
		auth.GET("/report", endpoint.ListReports)

		doctor := auth.Group("/")
		doctor.Use(middleware.RequireRole(model.RoleDoctor))
		{
			doctor.POST("/document", endpoint.UploadDocuments)
			doctor.POST("/report", endpoint.CreateReport)
		}

		bank := auth.Group("/")
		bank.Use(middleware.RequireRole(model.RoleBank))
		{
			bank.GET("/payment", endpoint.ListPayments)
			bank.POST("/payment", endpoint.CreatePayment)
			bank.PATCH("/payment/:id", endpoint.ResolvePayment)
			bank.POST("/claim/:id/settle", endpoint.SettleClaim)
		}
	}

	cleanup := func() {
		if err := db.Migrator().DropTable(testModels...); err != nil {
			t.Errorf("failed to drop tables during cleanup: %v", err)
		}
	}

	return r, db, cleanup
}

// requestParams groups HTTP request parameters to reduce function arguments.
type requestParams struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
}

// doRequest executes an HTTP request against the router and returns the recorder.
func doRequest(r http.Handler, params requestParams) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(params.method, params.path, bytes.NewBuffer(params.body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range params.headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// doJSONRequest marshals body (if non-nil) and performs the request with an
// optional session token.
func doJSONRequest(t *testing.T, r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body failed: %v", err)
		}
	}
	headers := map[string]string{}
	if token != "" {
		headers[middleware.SessionTokenHeader] = token
	}
	return doRequest(r, requestParams{method: method, path: path, body: b, headers: headers})
}

// SignupCreds describes an account created for a test.
type SignupCreds struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// CreateAndLoginUser signs up and logs in a user, returning session token and
// user id. It fails the test on error.
func CreateAndLoginUser(t *testing.T, r http.Handler, creds SignupCreds) (string, uint) {
	t.Helper()

	signupBody := map[string]string{
		"name":     creds.Name,
		"email":    creds.Email,
		"password": creds.Password,
		"role":     string(creds.Role),
	}
	rr := doJSONRequest(t, r, "POST", "/signup", signupBody, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup %s returned non-201: %d %s", creds.Email, rr.Code, rr.Body.String())
	}

	loginBody := map[string]string{"email": creds.Email, "password": creds.Password}
	rr = doJSONRequest(t, r, "POST", "/login", loginBody, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s returned non-200: %d %s", creds.Email, rr.Code, rr.Body.String())
	}

	resp := ParseAPIResp(t, rr)
	var data struct {
		Token  string `json:"token"`
		Role   string `json:"role"`
		UserID uint   `json:"user_id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("parse login data failed: %v", err)
	}
	return data.Token, data.UserID
}

// actor bundles a logged-in test account.
type actor struct {
	Token string
	ID    uint
}

// SetupFourRoleServer initializes the server and logs in one user per role.
func SetupFourRoleServer(t *testing.T) (*gin.Engine, *gorm.DB, map[model.Role]actor) {
	t.Helper()
	r, db, cleanup := SetupTestServer(t)
	t.Cleanup(cleanup)

	actors := make(map[model.Role]actor)
	for _, a := range []SignupCreds{
		{Name: "Pat Patient", Email: "pat@example.com", Password: "password123", Role: model.RolePatient},
		{Name: "Dr. Dana", Email: "dana@example.com", Password: "password123", Role: model.RoleDoctor},
		{Name: "Ina Insurance", Email: "ina@example.com", Password: "password123", Role: model.RoleInsurance},
		{Name: "Ben Bank", Email: "ben@example.com", Password: "password123", Role: model.RoleBank},
	} {
		token, id := CreateAndLoginUser(t, r, a)
		actors[a.Role] = actor{Token: token, ID: id}
	}
	return r, db, actors
}

// ParseAPIResp decodes a standard API response from a ResponseRecorder.
func ParseAPIResp(t *testing.T, rr *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// ParseDataToMap unmarshals an API response Data field into a map.
func ParseDataToMap(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("parse data failed: %v", err)
	}
	return data
}

// createDraftClaim creates a claim draft as the given patient and returns its
// id and claim number.
func createDraftClaim(t *testing.T, r http.Handler, patientToken string, amount float64) (uint, string) {
	t.Helper()
	body := map[string]interface{}{
		"diagnosis":      "Lumbar strain",
		"treatment_date": "2024-01-15",
		"claim_amount":   amount,
	}
	rr := doJSONRequest(t, r, "POST", "/claim", body, patientToken)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create claim returned non-201: %d %s", rr.Code, rr.Body.String())
	}
	resp := ParseAPIResp(t, rr)
	data := ParseDataToMap(t, resp.Data)
	return uint(data["ID"].(float64)), data["claim_number"].(string)
}

// transitionClaim applies a status transition as the given actor and returns
// the response for the caller to assert on.
func transitionClaim(t *testing.T, r http.Handler, token string, claimID uint, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONRequest(t, r, "PATCH", claimPath(claimID), body, token)
}

func claimPath(claimID uint) string {
	return "/claim/" + strconv.FormatUint(uint64(claimID), 10)
}
