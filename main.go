// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/config"
	"github.com/medisure/claims-api/endpoint"
	"github.com/medisure/claims-api/middleware"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
	"gorm.io/gorm"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	util.SetJWTSecret(jwtSecret)

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Session{}, &model.Claim{}, &model.ClaimNumber{},
		&model.Appointment{}, &model.Payment{}, &model.Document{},
		&model.PatientReport{}, &model.SecurityLog{},
	); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}

	util.SetSecurityLoggerDB(db)
	util.InitIdentityCache(1024)

	if err := seedDemoUsers(db); err != nil {
		log.Fatalf("Error seeding demo users: %v", err)
	}

	if _, err := config.ConnectRedis(); err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	if _, err := config.ConnectS3(); err != nil {
		log.Fatalf("Error connecting to S3: %v", err)
	}

	if cfg.GeoIPDBPath != "" {
		if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
			log.Printf("GeoIP database unavailable, locations will be unknown: %v", err)
		}
		defer util.CloseGeoIP()
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	// Create a Gin router with default middleware
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	authLimiter := middleware.RateLimiter(middleware.RateLimitConfig{Limit: 5, Window: 15 * time.Minute})
	router.POST("/signup", authLimiter, endpoint.Signup)
	router.POST("/login", authLimiter, endpoint.Login)
	router.GET("/token/validate", endpoint.ValidateToken)

	authed := router.Group("/")
	authed.Use(middleware.SessionAuth())
	{
		authed.POST("/logout", endpoint.Logout)

		authed.GET("/user", endpoint.GetCurrentUser)
		authed.PUT("/user/complete-profile", endpoint.CompleteProfile)
		authed.GET("/user/doctors", endpoint.ListDoctors)

		authed.POST("/claim", endpoint.CreateClaim)
		authed.GET("/claim", endpoint.ListClaims)
		authed.GET("/claim/:id", endpoint.GetClaim)
		authed.PATCH("/claim/:id", endpoint.UpdateClaimStatus)

		authed.POST("/appointment", endpoint.CreateAppointment)
		authed.GET("/appointment", endpoint.ListAppointments)
		authed.PATCH("/appointment/:id", endpoint.UpdateAppointmentStatus)

		authed.GET("/document", endpoint.ListDocuments)
		authed.GET("/report", endpoint.ListReports)

		doctor := authed.Group("/")
		doctor.Use(middleware.RequireRole(model.RoleDoctor))
		{
			doctor.POST("/document", endpoint.UploadDocuments)
			doctor.POST("/report", endpoint.CreateReport)
		}

		bank := authed.Group("/")
		bank.Use(middleware.RequireRole(model.RoleBank))
		{
			bank.GET("/payment", endpoint.ListPayments)
			bank.POST("/payment", endpoint.CreatePayment)
			bank.PATCH("/payment/:id", endpoint.ResolvePayment)
			bank.POST("/claim/:id/settle", endpoint.SettleClaim)
		}
	}

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

// seedDemoUsers provisions the four demo accounts on first boot. The shared
// demo password comes from DEMO_PASSWORD and defaults to a throwaway value
// suitable only for local development.
func seedDemoUsers(db *gorm.DB) error {
	password := os.Getenv("DEMO_PASSWORD")
	if password == "" {
		password = "password123"
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := util.HashPasswordArgon2(password, salt)
	if err != nil {
		return err
	}
	return model.SeedUsers(db, hash, salt)
}
