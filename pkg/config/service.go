package config

import "time"

// ServiceConfig holds runtime configuration for the error ingestion service.
type ServiceConfig struct {
	Environment       string
	Addr              string
	DatabaseURL       string
	MigrationsDir     string
	JWTSecret         string
	NonceSecret       string
	AdminUser         string
	AdminPasswordHash string
	SessionTTL        time.Duration
	SubmitTokenBucket time.Duration
	ClearNonceTTL     time.Duration
	CookieName        string
	CookieSecure      bool
}

// LoadServiceConfig constructs a ServiceConfig from environment variables.
func LoadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Environment:       GetString("APP_ENV", "development"),
		Addr:              GetString("JSERRLOG_ADDR", ":4600"),
		DatabaseURL:       GetString("DATABASE_URL", "postgres://jserrlog:jserrlog@db:5432/jserrlog?sslmode=disable"),
		MigrationsDir:     GetString("DB_MIGRATIONS_DIR", "./migrations"),
		JWTSecret:         GetString("JWT_SECRET", "supersecuresecret"),
		NonceSecret:       GetString("NONCE_SECRET", "supersecuresecret"),
		AdminUser:         GetString("ADMIN_USER", "admin"),
		AdminPasswordHash: GetString("ADMIN_PASSWORD_HASH", ""),
		SessionTTL:        time.Duration(GetInt("SESSION_TTL_MIN", 60)) * time.Minute,
		SubmitTokenBucket: time.Duration(GetInt("SUBMIT_TOKEN_BUCKET_HOURS", 12)) * time.Hour,
		ClearNonceTTL:     time.Duration(GetInt("CLEAR_NONCE_TTL_MIN", 30)) * time.Minute,
		CookieName:        GetString("SESSION_COOKIE_NAME", "jserrlog_session"),
		CookieSecure:      GetBool("SESSION_COOKIE_SECURE", false),
	}
}
