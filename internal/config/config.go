package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported generation backends.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultJWTSigningKey is the development fallback for JWT_SIGNING_KEY.
const DefaultJWTSigningKey = "dev-signing-secret-change"

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string
	HTTPPort string

	MongoURI     string
	MongoDBName  string
	MongoTimeout time.Duration

	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration
	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	RedisAddr         string
	RateLimitPerMin   int
	AIRateLimitPerMin int

	AuthRequired  bool
	AdminUsername string
	AdminPassword string
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	CORSOrigins []string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment. Files that do not exist are skipped; existing variables win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("could not load env file", "path", p, "error", err)
		}
	}
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:               getEnv("APP_ENV", "dev"),
		HTTPPort:          getEnv("PORT", getEnv("HTTP_PORT", "5001")),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017/"),
		MongoDBName:       getEnv("MONGODB_DB_NAME", "iiit_attendance"),
		MongoTimeout:      durationEnv("MONGODB_TIMEOUT", 5*time.Second),
		AIProvider:        strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout:     durationEnv("GEMINI_TIMEOUT", 60*time.Second),
		OllamaURL:         strings.TrimRight(getEnv("OLLAMA_URL", "http://localhost:11434"), "/"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3.2"),
		OllamaTimeout:     durationEnv("OLLAMA_TIMEOUT", 180*time.Second),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RateLimitPerMin:   intEnv("RATE_LIMIT_PER_MIN", 600),
		AIRateLimitPerMin: intEnv("AI_RATE_LIMIT_PER_MIN", 30),
		AuthRequired:      boolEnv("AUTH_REQUIRED", false),
		AdminUsername:     getEnv("ADMIN_USERNAME", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "campusattend"),
		JWTSigningKey:     getEnv("JWT_SIGNING_KEY", DefaultJWTSigningKey),
		AccessTTL:         durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:        durationEnv("REFRESH_TTL", 24*time.Hour),
		CORSOrigins:       listEnv("CORS_ORIGINS", []string{"*"}),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "campusattend/students"),
	}
}

// Production reports whether the app runs with production settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// CloudinaryConfigured reports whether student photos can be offloaded.
func (a App) CloudinaryConfigured() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

// Validate reports settings that make the service unable to start.
func (a App) Validate() error {
	var problems []string
	switch a.AIProvider {
	case ProviderGemini:
		if a.GeminiAPIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is not set")
		}
	case ProviderOllama:
		if a.OllamaURL == "" {
			problems = append(problems, "OLLAMA_URL is not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown AI_PROVIDER %q", a.AIProvider))
	}
	if a.AuthRequired && a.JWTSigningKey == "" {
		problems = append(problems, "JWT_SIGNING_KEY is required when AUTH_REQUIRED is set")
	}
	if a.AuthRequired && a.Production() && a.JWTSigningKey == DefaultJWTSigningKey {
		problems = append(problems, "JWT_SIGNING_KEY must not use the development default in production")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "error", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
		slog.Warn("invalid bool, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
