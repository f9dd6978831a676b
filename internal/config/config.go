package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string
	Port           string
	LogLevel       string
	AllowedOrigins []string
	FrontendURL    string

	Database DatabaseConfig
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	Google GoogleConfig

	MeiliSearchHost string
	MeiliMasterKey  string

	Cloudinary CloudinaryConfig

	GeminiAPIKey string
	GeminiModel  string

	EmailJS EmailJSConfig

	RateLimitContact time.Duration
	RateLimitRewrite time.Duration
	OrphanCleanup    string
	FeedRefresh      time.Duration

	SuperAdminEmail    string
	SuperAdminPassword string
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN renders a libpq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type CloudinaryConfig struct {
	URL          string
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
}

type EmailJSConfig struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		AppEnv:         v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		FrontendURL:    strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),

		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			Name:     v.GetString("DB_NAME"),
			Port:     v.GetString("DB_PORT"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		RedisURL: v.GetString("REDIS_URL"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    time.Duration(v.GetInt("JWT_TTL_MINUTES")) * time.Minute,

		Google: GoogleConfig{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		},

		MeiliSearchHost: normalizeMeiliHost(v.GetString("MEILISEARCH_HOST")),
		MeiliMasterKey:  v.GetString("MEILI_MASTER_KEY"),

		Cloudinary: CloudinaryConfig{
			URL:          v.GetString("CLOUDINARY_URL"),
			CloudName:    v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:       v.GetString("CLOUDINARY_API_KEY"),
			APISecret:    v.GetString("CLOUDINARY_API_SECRET"),
			UploadFolder: v.GetString("CLOUDINARY_UPLOAD_FOLDER"),
		},

		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
		GeminiModel:  v.GetString("GEMINI_MODEL"),

		EmailJS: EmailJSConfig{
			ServiceID:  v.GetString("EMAILJS_SERVICE_ID"),
			TemplateID: v.GetString("EMAILJS_TEMPLATE_ID"),
			PublicKey:  v.GetString("EMAILJS_PUBLIC_KEY"),
			PrivateKey: v.GetString("EMAILJS_PRIVATE_KEY"),
		},

		OrphanCleanup: v.GetString("ORPHAN_CLEANUP_SCHEDULE"),

		SuperAdminEmail:    v.GetString("SUPER_ADMIN_EMAIL"),
		SuperAdminPassword: v.GetString("SUPER_ADMIN_PASSWORD"),
	}

	var err error
	cfg.RateLimitContact, err = parseDuration(v.GetString("RATE_LIMIT_CONTACT"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_CONTACT: %w", err)
	}
	cfg.RateLimitRewrite, err = parseDuration(v.GetString("RATE_LIMIT_REWRITE"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REWRITE: %w", err)
	}
	cfg.FeedRefresh, err = parseDuration(v.GetString("FEED_REFRESH_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_REFRESH_INTERVAL: %w", err)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "change-me"
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "notifiq")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_TTL_MINUTES", 60)
	v.SetDefault("MEILISEARCH_HOST", "http://localhost:7700")
	v.SetDefault("CLOUDINARY_UPLOAD_FOLDER", "notifiq")
	v.SetDefault("GEMINI_MODEL", "gemini-flash-latest")

	v.SetDefault("RATE_LIMIT_CONTACT", "1m")
	v.SetDefault("RATE_LIMIT_REWRITE", "0s")
	v.SetDefault("FEED_REFRESH_INTERVAL", "1m")
	v.SetDefault("ORPHAN_CLEANUP_SCHEDULE", "@every 12h")
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeMeiliHost(host string) string {
	if host != "" && !strings.HasPrefix(host, "http") {
		return "http://" + host + ":7700"
	}
	return host
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
