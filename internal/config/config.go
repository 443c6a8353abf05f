package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

const (
	AIModeMock   = "mock"
	AIModeOpenAI = "openai"
	AIModeGemini = "gemini"
)

const (
	AuthModeNone = "none"
	AuthModeDev  = "dev"
)

const (
	PlanFormatJSON  = "json"
	PlanFormatProse = "prose"
)

const (
	DefaultAIBaseURL   = "https://api.scaleway.ai/v1"
	DefaultAIModel     = "llama-3.1-70b-instruct"
	DefaultGeminiModel = "gemini-1.5-flash"
)

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLSeconds int
	PreferPublicURL   bool
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

// Diagnostics reports the S3 readiness as a log level, a short code and a message.
func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == ""

	if allEmpty {
		return "info", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "warn", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "info", "s3_ready", "ready"
}

// DiagnosticsSummary returns a summary for logging (no secrets)
func (c S3Config) DiagnosticsSummary() string {
	accessKeyStatus := "not set"
	if strings.TrimSpace(c.AccessKeyID) != "" {
		accessKeyStatus = "set"
	}
	secretKeyStatus := "not set"
	if strings.TrimSpace(c.SecretAccessKey) != "" {
		secretKeyStatus = "set"
	}

	return fmt.Sprintf("endpoint=%s region=%s bucket=%s public_base_url=%s presign_ttl=%ds prefer_public_url=%t access_key_id=%s secret_access_key=%s",
		nonEmptyOrDash(c.Endpoint),
		nonEmptyOrDash(c.Region),
		nonEmptyOrDash(c.Bucket),
		nonEmptyOrDash(c.PublicBaseURL),
		c.PresignTTLSeconds,
		c.PreferPublicURL,
		accessKeyStatus,
		secretKeyStatus,
	)
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

type BlobConfig struct {
	Mode           string // local|s3|auto
	ExportsMode    string // local|s3|auto (override)
	ExportsModeSet bool
	S3             S3Config
}

func (c BlobConfig) EffectiveExportsMode() string {
	if c.ExportsModeSet {
		return c.ExportsMode
	}
	return c.Mode
}

// AIConfig groups the completion backend settings.
type AIConfig struct {
	Mode            string // mock | openai | gemini
	BaseURL         string
	APIKey          string
	Model           string
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TimeoutSeconds  int
	MaxConcurrent   int
	GeminiAPIKey    string
	GeminiModel     string
}

// Config holds the application configuration
type Config struct {
	Env      string // local | staging | production
	Port     int
	LogLevel string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	Blob BlobConfig

	// Exports
	ExportsMaxPerUser      int
	ExportsDefaultTTLHours int

	// Authentication
	AuthMode      string // none | dev
	AuthRequired  bool
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	AI AIConfig

	// Plans
	PlanFormat    string // json | prose
	PlanCacheSize int
	PlanTimeZone  string

	// Migrations
	RunMigrationsOnStartup bool
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	// APP_ENV (fallback to ENV, default: local)
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env == "" {
		env = "local"
	}

	port := envInt("PORT", 8080)

	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = "debug"
	}

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbPooled := strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))

	runtimeDB := dbPooled
	if runtimeDB == "" {
		runtimeDB = dbURL
	}
	if runtimeDB == "" {
		runtimeDB = dbDirect
	}

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := parseBoolEnv("CORS_ALLOW_CREDENTIALS")

	// ---------- Blob / S3 ----------
	blobMode := parseBlobMode("BLOB_MODE", BlobModeLocal)
	exportsModeRaw := strings.ToLower(strings.TrimSpace(os.Getenv("EXPORTS_MODE")))
	exportsModeSet := exportsModeRaw != ""
	exportsMode := exportsModeRaw
	if exportsMode == "" {
		exportsMode = BlobModeLocal
	}
	if exportsMode != BlobModeLocal && exportsMode != BlobModeS3 && exportsMode != BlobModeAuto {
		log.Warn().Str("value", exportsMode).Msgf("unknown EXPORTS_MODE, fallback to %s", BlobModeLocal)
		exportsMode = BlobModeLocal
	}

	// S3_PRESIGN_TTL_SECONDS (default: 900, enforce > 0)
	s3PresignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if s3PresignTTL <= 0 {
		s3PresignTTL = 900
	}

	blobCfg := BlobConfig{
		Mode:           blobMode,
		ExportsMode:    exportsMode,
		ExportsModeSet: exportsModeSet,
		S3: S3Config{
			Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
			Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
			AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
			SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
			PublicBaseURL:     strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")),
			PresignTTLSeconds: s3PresignTTL,
			PreferPublicURL:   parseBoolEnv("S3_PREFER_PUBLIC_URL"),
		},
	}

	exportsMaxPerUser := envInt("EXPORTS_MAX_PER_USER", 20)
	if exportsMaxPerUser <= 0 {
		exportsMaxPerUser = 20
	}
	exportsDefaultTTL := envInt("EXPORTS_DEFAULT_TTL_HOURS", 168)

	// ---------- Auth ----------
	authMode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if authMode == "" {
		authMode = AuthModeNone
	}
	if authMode != AuthModeNone && authMode != AuthModeDev {
		log.Warn().Str("value", authMode).Msg("unknown AUTH_MODE, fallback to none")
		authMode = AuthModeNone
	}
	authRequired := authMode != AuthModeNone && parseBoolEnv("AUTH_REQUIRED")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "change_me"
	}
	if jwtSecret == "change_me" && env != "local" {
		log.Warn().Msg("JWT_SECRET is set to 'change_me' in non-local environment")
	}

	jwtIssuer := strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	if jwtIssuer == "" {
		jwtIssuer = "fitgenius"
	}

	// JWT_TTL_MINUTES (default: 10080 = 7 days)
	jwtTTLMinutes := envInt("JWT_TTL_MINUTES", 10080)
	if jwtTTLMinutes <= 0 {
		jwtTTLMinutes = 10080
	}

	// ---------- AI ----------
	aiCfg, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	// ---------- Plans ----------
	planFormat := strings.ToLower(strings.TrimSpace(os.Getenv("PLAN_FORMAT")))
	if planFormat == "" {
		planFormat = PlanFormatJSON
	}
	if planFormat != PlanFormatJSON && planFormat != PlanFormatProse {
		log.Warn().Str("value", planFormat).Msgf("unknown PLAN_FORMAT, fallback to %s", PlanFormatJSON)
		planFormat = PlanFormatJSON
	}

	planCacheSize := envInt("PLAN_CACHE_SIZE", 256)
	if planCacheSize <= 0 {
		planCacheSize = 256
	}

	planTZ := strings.TrimSpace(os.Getenv("PLAN_TIMEZONE"))
	if planTZ == "" {
		planTZ = "Europe/Madrid"
	}

	return &Config{
		Env:               env,
		Port:              port,
		LogLevel:          logLevel,
		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbURL,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   envInt("RATE_LIMIT_RPS", 0),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 0),

		Blob: blobCfg,

		ExportsMaxPerUser:      exportsMaxPerUser,
		ExportsDefaultTTLHours: exportsDefaultTTL,

		AuthMode:      authMode,
		AuthRequired:  authRequired,
		JWTSecret:     jwtSecret,
		JWTIssuer:     jwtIssuer,
		JWTTTLMinutes: jwtTTLMinutes,

		AI: aiCfg,

		PlanFormat:    planFormat,
		PlanCacheSize: planCacheSize,
		PlanTimeZone:  planTZ,

		RunMigrationsOnStartup: parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP"),
	}, nil
}

func loadAIConfig() (AIConfig, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AI_MODE")))
	if mode == "" {
		mode = AIModeMock
	}
	if mode != AIModeMock && mode != AIModeOpenAI && mode != AIModeGemini {
		log.Warn().Str("value", mode).Msgf("unknown AI_MODE, fallback to %s", AIModeMock)
		mode = AIModeMock
	}

	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("AI_BASE_URL")), "/")
	if baseURL == "" {
		baseURL = DefaultAIBaseURL
	}

	// AI_API_KEY, OPENAI_API_KEY kept as an alias
	apiKey := strings.TrimSpace(os.Getenv("AI_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	model := strings.TrimSpace(os.Getenv("AI_MODEL"))
	if model == "" {
		model = DefaultAIModel
	}

	maxTokens := envInt("AI_MAX_OUTPUT_TOKENS", 4096)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	temperature := envFloat("AI_TEMPERATURE", 0.7)
	if temperature < 0 {
		temperature = 0
	}
	if temperature > 2 {
		temperature = 2
	}

	topP := envFloat("AI_TOP_P", 1.0)
	if topP <= 0 || topP > 1 {
		topP = 1.0
	}

	timeoutSeconds := envInt("AI_TIMEOUT_SECONDS", 120)
	if timeoutSeconds <= 0 {
		timeoutSeconds = 120
	}

	maxConcurrent := envInt("AI_MAX_CONCURRENT", 4)
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	geminiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	geminiModel := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if geminiModel == "" {
		geminiModel = DefaultGeminiModel
	}

	switch {
	case mode == AIModeOpenAI && apiKey == "":
		return AIConfig{}, fmt.Errorf("AI_API_KEY is required when AI_MODE=%s", AIModeOpenAI)
	case mode == AIModeGemini && geminiKey == "":
		return AIConfig{}, fmt.Errorf("GEMINI_API_KEY is required when AI_MODE=%s", AIModeGemini)
	}

	return AIConfig{
		Mode:            mode,
		BaseURL:         baseURL,
		APIKey:          apiKey,
		Model:           model,
		MaxOutputTokens: maxTokens,
		Temperature:     temperature,
		TopP:            topP,
		TimeoutSeconds:  timeoutSeconds,
		MaxConcurrent:   maxConcurrent,
		GeminiAPIKey:    geminiKey,
		GeminiModel:     geminiModel,
	}, nil
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:8081"}
		}
		return nil // deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func parseBlobMode(key string, defaultVal string) string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if mode == "" {
		return defaultVal
	}
	switch mode {
	case BlobModeLocal, BlobModeS3, BlobModeAuto:
		return mode
	default:
		log.Warn().Str("key", key).Str("value", mode).Msgf("unknown blob mode, fallback to %s", defaultVal)
		return defaultVal
	}
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func envFloat(key string, defaultVal float64) float64 {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
