package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionTTL    time.Duration
	AdminEmail    string
	AdminPassword string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. The admin bootstrap credentials are
// optional as a pair: setting only one of them is reported as an error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLiteDSN:  "file:roombooking.db?_foreign_keys=on",
		SessionTTL: 12 * time.Hour,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROOMBOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROOMBOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMBOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ROOMBOOKING_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROOMBOOKING_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(os.Getenv("ROOMBOOKING_ADMIN_EMAIL")))
	if password := os.Getenv("ROOMBOOKING_ADMIN_PASSWORD"); strings.TrimSpace(password) != "" {
		cfg.AdminPassword = password
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		missing = append(missing, "ROOMBOOKING_ADMIN_PASSWORD")
	}
	if cfg.AdminPassword != "" && cfg.AdminEmail == "" {
		missing = append(missing, "ROOMBOOKING_ADMIN_EMAIL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
