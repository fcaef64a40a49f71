package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName     string `json:"appname"`
	AppEnv      string `json:"appenv"`
	AppPort     uint16 `json:"appport"`
	GinMode     string `json:"ginmode"`
	DBHost      string `json:"dbhost"`
	DBPort      uint16 `json:"dbport"`
	DBName      string `json:"dbname"`
	DBUser      string `json:"dbuser"`
	DBPass      string `json:"dbpass"`
	AWSRegion   string `json:"awsregion"`
	S3Bucket    string `json:"s3bucket"`
	GeoIPDBPath string `json:"geoipdbpath"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env file is fine in test/CI environments where the
		// variables are injected directly.
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

		config = &Config{
			AppName:     os.Getenv("APPNAME"),
			AppEnv:      os.Getenv("APPENV"),
			AppPort:     uint16(appPort),
			GinMode:     os.Getenv("GINMODE"),
			DBHost:      os.Getenv("DBHOST"),
			DBPort:      uint16(dbPort),
			DBName:      os.Getenv("DBNAME"),
			DBUser:      os.Getenv("DBUSER"),
			DBPass:      os.Getenv("DBPASS"),
			AWSRegion:   os.Getenv("AWS_REGION"),
			S3Bucket:    os.Getenv("AWS_S3_BUCKET"),
			GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		}
	})
	return config
}

// ResetConfigForTesting clears the singleton so tests can reload with fresh env vars.
func ResetConfigForTesting() {
	config = nil
	once = sync.Once{}
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
// In the test environment it returns a private in-memory SQLite database instead,
// so every test run starts from a clean schema.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" {
		return gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	}

	// Build the Data Source Name (DSN) using the configuration values.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
