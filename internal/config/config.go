package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time for TTL and interval durations

	"github.com/joho/godotenv" // optional .env loading for local development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Durations accept Go duration syntax ("10m", "30s").
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	HoldTTL       time.Duration // how long seat holds live before expiring
	SweepInterval time.Duration // how often the sweeper releases expired holds
	SeedDemoData  bool          // create a demo flight with seats at startup
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file is loaded first when present.  Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message.
func Load() Config {
	_ = godotenv.Load() // missing .env is fine; real env vars win anyway

	return Config{
		Env:           must("APP_ENV"),      // environment (dev/test/prod)
		Port:          must("APP_PORT"),     // port to bind the HTTP server
		DBUser:        must("DB_USER"),      // database user
		DBPass:        os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:        must("DB_HOST"),      // database host
		DBPort:        must("DB_PORT"),      // database port
		DBName:        must("DB_NAME"),      // database name
		HoldTTL:       envDur("HOLD_TTL", 10*time.Minute),
		SweepInterval: envDur("SWEEP_INTERVAL", 30*time.Second),
		SeedDemoData:  envBool("SEED_DEMO_DATA", false),
	}
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
