package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values of STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database fields are only required for the
// backend selected by StoreDriver.
type Config struct {
	Env            string // application environment (e.g. "dev", "production")
	Port           string // HTTP port to listen on
	StoreDriver    string // mysql, mongo or memory
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	MongoURI       string // mongo connection string
	MongoDB        string // mongo database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing
	RequestTimeout time.Duration
	// ReviewRequiresCompletedBooking restricts reviews to customers holding
	// a complete booking for the listing.
	ReviewRequiresCompletedBooking bool
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("config: .env present but unreadable: %v", err)
		}
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		StoreDriver:    strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		RequestTimeout: envDur("REQUEST_TIMEOUT", 5*time.Second),

		ReviewRequiresCompletedBooking: envBool("REVIEW_REQUIRE_COMPLETED_BOOKING", false),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case DriverMongo:
		cfg.MongoURI = must("MONGO_URI")
		cfg.MongoDB = envStr("MONGO_DB", "marketplace")
	}
	return cfg
}

// Validate rejects combinations Load cannot catch on its own.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMySQL, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.AccessTTLMin < 1 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if c.RefreshTTLDays < 1 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range 4..31", c.BcryptCost))
	}
	return errors.Join(errs...)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
