package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Pipeline   PipelineConfig
	Similarity SimilarityConfig
	Store      StoreConfig
	Email      EmailConfig
}

// EmailConfig holds run notification settings.
type EmailConfig struct {
	Provider      string `mapstructure:"provider"`
	Region        string `mapstructure:"region"`
	FromAddress   string `mapstructure:"from_address"`
	FromName      string `mapstructure:"from_name"`
	NotifyAddress string `mapstructure:"notify_address"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig selects the backend for learned mappings and run reports.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// SimilarityConfig holds settings for the semantic similarity collaborator.
type SimilarityConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	CacheSize   int    `mapstructure:"cache_size"`
}

// ClassifierConfig holds sheet classification thresholds.
type ClassifierConfig struct {
	SemanticAccept  float64 `mapstructure:"semantic_accept"`
	PrimaryWeight   float64 `mapstructure:"primary_weight"`
	SecondaryWeight float64 `mapstructure:"secondary_weight"`
	NameBoost       float64 `mapstructure:"name_boost"`
}

// MappingConfig holds column mapping thresholds.
type MappingConfig struct {
	PatternConfidence float64 `mapstructure:"pattern_confidence"`
	AliasConfidence   float64 `mapstructure:"alias_confidence"`
	SemanticAccept    float64 `mapstructure:"semantic_accept"`
	GrayZoneLow       float64 `mapstructure:"gray_zone_low"`
	GrayZoneHigh      float64 `mapstructure:"gray_zone_high"`
	FuzzyAccept       float64 `mapstructure:"fuzzy_accept"`
	FuzzyCap          float64 `mapstructure:"fuzzy_cap"`
	WeakConfidence    float64 `mapstructure:"weak_confidence"`
	LearnThreshold    float64 `mapstructure:"learn_threshold"`
	StoreTopK         int     `mapstructure:"store_top_k"`
}

// ExtractionConfig holds the defaults applied when a cell is blank or unparseable.
type ExtractionConfig struct {
	DefaultPowerFactor float64 `mapstructure:"default_power_factor"`
	DefaultEfficiency  float64 `mapstructure:"default_efficiency"`
	DefaultPhases      int     `mapstructure:"default_phases"`
	DefaultVoltageV    float64 `mapstructure:"default_voltage_v"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	Classifier      ClassifierConfig `mapstructure:"classifier"`
	Mapping         MappingConfig    `mapstructure:"mapping"`
	Extraction      ExtractionConfig `mapstructure:"extraction"`
	ParallelSheets  bool             `mapstructure:"parallel_sheets"`
	MaxParallel     int              `mapstructure:"max_parallel"`
	ReviewThreshold float64          `mapstructure:"review_threshold"`
	GrayZonePolicy  string           `mapstructure:"gray_zone_policy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Issuer      string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	Enabled       bool   `mapstructure:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultClassifierConfig returns the tuned classification thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SemanticAccept:  0.7,
		PrimaryWeight:   3,
		SecondaryWeight: 1,
		NameBoost:       0.1,
	}
}

// DefaultMappingConfig returns the tuned column mapping thresholds.
func DefaultMappingConfig() MappingConfig {
	return MappingConfig{
		PatternConfidence: 1.0,
		AliasConfidence:   0.95,
		SemanticAccept:    0.7,
		GrayZoneLow:       0.50,
		GrayZoneHigh:      0.65,
		FuzzyAccept:       0.6,
		FuzzyCap:          0.9,
		WeakConfidence:    0.3,
		LearnThreshold:    0.8,
		StoreTopK:         3,
	}
}

// DefaultExtractionConfig returns the standard extraction defaults.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		DefaultPowerFactor: 0.85,
		DefaultEfficiency:  0.9,
		DefaultPhases:      3,
		DefaultVoltageV:    400,
	}
}

// DefaultPipelineConfig returns a sequential pipeline with the default thresholds.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Classifier:      DefaultClassifierConfig(),
		Mapping:         DefaultMappingConfig(),
		Extraction:      DefaultExtractionConfig(),
		ParallelSheets:  false,
		MaxParallel:     4,
		ReviewThreshold: 0.6,
		GrayZonePolicy:  "reject",
	}
}

// Load reads configuration from environment variables with the SCHEDEX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCHEDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "schedex")
	v.SetDefault("db.password", "schedex_secret")
	v.SetDefault("db.name", "schedex_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.token_expiry", "24h")
	v.SetDefault("jwt.issuer", "schedex")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "schedex-workbooks")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 25)
	v.SetDefault("s3.enabled", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Pipeline defaults
	pd := DefaultPipelineConfig()
	v.SetDefault("pipeline.parallel_sheets", pd.ParallelSheets)
	v.SetDefault("pipeline.max_parallel", pd.MaxParallel)
	v.SetDefault("pipeline.review_threshold", pd.ReviewThreshold)
	v.SetDefault("pipeline.gray_zone_policy", pd.GrayZonePolicy)
	v.SetDefault("pipeline.classifier.semantic_accept", pd.Classifier.SemanticAccept)
	v.SetDefault("pipeline.classifier.primary_weight", pd.Classifier.PrimaryWeight)
	v.SetDefault("pipeline.classifier.secondary_weight", pd.Classifier.SecondaryWeight)
	v.SetDefault("pipeline.classifier.name_boost", pd.Classifier.NameBoost)
	v.SetDefault("pipeline.mapping.pattern_confidence", pd.Mapping.PatternConfidence)
	v.SetDefault("pipeline.mapping.alias_confidence", pd.Mapping.AliasConfidence)
	v.SetDefault("pipeline.mapping.semantic_accept", pd.Mapping.SemanticAccept)
	v.SetDefault("pipeline.mapping.gray_zone_low", pd.Mapping.GrayZoneLow)
	v.SetDefault("pipeline.mapping.gray_zone_high", pd.Mapping.GrayZoneHigh)
	v.SetDefault("pipeline.mapping.fuzzy_accept", pd.Mapping.FuzzyAccept)
	v.SetDefault("pipeline.mapping.fuzzy_cap", pd.Mapping.FuzzyCap)
	v.SetDefault("pipeline.mapping.weak_confidence", pd.Mapping.WeakConfidence)
	v.SetDefault("pipeline.mapping.learn_threshold", pd.Mapping.LearnThreshold)
	v.SetDefault("pipeline.mapping.store_top_k", pd.Mapping.StoreTopK)
	v.SetDefault("pipeline.extraction.default_power_factor", pd.Extraction.DefaultPowerFactor)
	v.SetDefault("pipeline.extraction.default_efficiency", pd.Extraction.DefaultEfficiency)
	v.SetDefault("pipeline.extraction.default_phases", pd.Extraction.DefaultPhases)
	v.SetDefault("pipeline.extraction.default_voltage_v", pd.Extraction.DefaultVoltageV)

	// Similarity defaults
	v.SetDefault("similarity.provider", "none")
	v.SetDefault("similarity.api_key", "")
	v.SetDefault("similarity.model", "claude-sonnet-4-20250514")
	v.SetDefault("similarity.timeout_secs", 20)
	v.SetDefault("similarity.cache_size", 2048)

	v.SetDefault("store.backend", "memory")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@schedex.local")
	v.SetDefault("email.from_name", "Schedex")
	v.SetDefault("email.notify_address", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                              "SCHEDEX_SERVER_PORT",
		"server.read_timeout":                      "SCHEDEX_SERVER_READ_TIMEOUT",
		"server.write_timeout":                     "SCHEDEX_SERVER_WRITE_TIMEOUT",
		"server.environment":                       "SCHEDEX_SERVER_ENVIRONMENT",
		"db.host":                                  "SCHEDEX_DB_HOST",
		"db.port":                                  "SCHEDEX_DB_PORT",
		"db.user":                                  "SCHEDEX_DB_USER",
		"db.password":                              "SCHEDEX_DB_PASSWORD",
		"db.name":                                  "SCHEDEX_DB_NAME",
		"db.sslmode":                               "SCHEDEX_DB_SSLMODE",
		"db.max_open":                              "SCHEDEX_DB_MAX_OPEN",
		"db.max_idle":                              "SCHEDEX_DB_MAX_IDLE",
		"jwt.secret":                               "SCHEDEX_JWT_SECRET",
		"jwt.token_expiry":                         "SCHEDEX_JWT_TOKEN_EXPIRY",
		"jwt.issuer":                               "SCHEDEX_JWT_ISSUER",
		"s3.region":                                "SCHEDEX_S3_REGION",
		"s3.bucket":                                "SCHEDEX_S3_BUCKET",
		"s3.endpoint":                              "SCHEDEX_S3_ENDPOINT",
		"s3.access_key":                            "SCHEDEX_S3_ACCESS_KEY",
		"s3.secret_key":                            "SCHEDEX_S3_SECRET_KEY",
		"s3.max_file_size_mb":                      "SCHEDEX_S3_MAX_FILE_SIZE_MB",
		"s3.enabled":                               "SCHEDEX_S3_ENABLED",
		"log.level":                                "SCHEDEX_LOG_LEVEL",
		"log.format":                               "SCHEDEX_LOG_FORMAT",
		"cors.allowed_origins":                     "SCHEDEX_CORS_ALLOWED_ORIGINS",
		"pipeline.parallel_sheets":                 "SCHEDEX_PIPELINE_PARALLEL_SHEETS",
		"pipeline.max_parallel":                    "SCHEDEX_PIPELINE_MAX_PARALLEL",
		"pipeline.review_threshold":                "SCHEDEX_PIPELINE_REVIEW_THRESHOLD",
		"pipeline.gray_zone_policy":                "SCHEDEX_PIPELINE_GRAY_ZONE_POLICY",
		"pipeline.classifier.semantic_accept":      "SCHEDEX_PIPELINE_CLASSIFIER_SEMANTIC_ACCEPT",
		"pipeline.classifier.primary_weight":       "SCHEDEX_PIPELINE_CLASSIFIER_PRIMARY_WEIGHT",
		"pipeline.classifier.secondary_weight":     "SCHEDEX_PIPELINE_CLASSIFIER_SECONDARY_WEIGHT",
		"pipeline.classifier.name_boost":           "SCHEDEX_PIPELINE_CLASSIFIER_NAME_BOOST",
		"pipeline.mapping.pattern_confidence":      "SCHEDEX_PIPELINE_MAPPING_PATTERN_CONFIDENCE",
		"pipeline.mapping.alias_confidence":        "SCHEDEX_PIPELINE_MAPPING_ALIAS_CONFIDENCE",
		"pipeline.mapping.semantic_accept":         "SCHEDEX_PIPELINE_MAPPING_SEMANTIC_ACCEPT",
		"pipeline.mapping.gray_zone_low":           "SCHEDEX_PIPELINE_MAPPING_GRAY_ZONE_LOW",
		"pipeline.mapping.gray_zone_high":          "SCHEDEX_PIPELINE_MAPPING_GRAY_ZONE_HIGH",
		"pipeline.mapping.fuzzy_accept":            "SCHEDEX_PIPELINE_MAPPING_FUZZY_ACCEPT",
		"pipeline.mapping.fuzzy_cap":               "SCHEDEX_PIPELINE_MAPPING_FUZZY_CAP",
		"pipeline.mapping.weak_confidence":         "SCHEDEX_PIPELINE_MAPPING_WEAK_CONFIDENCE",
		"pipeline.mapping.learn_threshold":         "SCHEDEX_PIPELINE_MAPPING_LEARN_THRESHOLD",
		"pipeline.mapping.store_top_k":             "SCHEDEX_PIPELINE_MAPPING_STORE_TOP_K",
		"pipeline.extraction.default_power_factor": "SCHEDEX_PIPELINE_EXTRACTION_DEFAULT_POWER_FACTOR",
		"pipeline.extraction.default_efficiency":   "SCHEDEX_PIPELINE_EXTRACTION_DEFAULT_EFFICIENCY",
		"pipeline.extraction.default_phases":       "SCHEDEX_PIPELINE_EXTRACTION_DEFAULT_PHASES",
		"pipeline.extraction.default_voltage_v":    "SCHEDEX_PIPELINE_EXTRACTION_DEFAULT_VOLTAGE_V",
		"similarity.provider":                      "SCHEDEX_SIMILARITY_PROVIDER",
		"similarity.api_key":                       "SCHEDEX_SIMILARITY_API_KEY",
		"similarity.model":                         "SCHEDEX_SIMILARITY_MODEL",
		"similarity.timeout_secs":                  "SCHEDEX_SIMILARITY_TIMEOUT_SECS",
		"similarity.cache_size":                    "SCHEDEX_SIMILARITY_CACHE_SIZE",
		"store.backend":                            "SCHEDEX_STORE_BACKEND",
		"email.provider":                           "SCHEDEX_EMAIL_PROVIDER",
		"email.region":                             "SCHEDEX_EMAIL_REGION",
		"email.from_address":                       "SCHEDEX_EMAIL_FROM_ADDRESS",
		"email.from_name":                          "SCHEDEX_EMAIL_FROM_NAME",
		"email.notify_address":                     "SCHEDEX_EMAIL_NOTIFY_ADDRESS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set PORT. Use it if SCHEDEX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SCHEDEX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:      v.GetString("jwt.secret"),
		TokenExpiry: v.GetDuration("jwt.token_expiry"),
		Issuer:      v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		Enabled:       v.GetBool("s3.enabled"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Pipeline = PipelineConfig{
		Classifier: ClassifierConfig{
			SemanticAccept:  v.GetFloat64("pipeline.classifier.semantic_accept"),
			PrimaryWeight:   v.GetFloat64("pipeline.classifier.primary_weight"),
			SecondaryWeight: v.GetFloat64("pipeline.classifier.secondary_weight"),
			NameBoost:       v.GetFloat64("pipeline.classifier.name_boost"),
		},
		Mapping: MappingConfig{
			PatternConfidence: v.GetFloat64("pipeline.mapping.pattern_confidence"),
			AliasConfidence:   v.GetFloat64("pipeline.mapping.alias_confidence"),
			SemanticAccept:    v.GetFloat64("pipeline.mapping.semantic_accept"),
			GrayZoneLow:       v.GetFloat64("pipeline.mapping.gray_zone_low"),
			GrayZoneHigh:      v.GetFloat64("pipeline.mapping.gray_zone_high"),
			FuzzyAccept:       v.GetFloat64("pipeline.mapping.fuzzy_accept"),
			FuzzyCap:          v.GetFloat64("pipeline.mapping.fuzzy_cap"),
			WeakConfidence:    v.GetFloat64("pipeline.mapping.weak_confidence"),
			LearnThreshold:    v.GetFloat64("pipeline.mapping.learn_threshold"),
			StoreTopK:         v.GetInt("pipeline.mapping.store_top_k"),
		},
		Extraction: ExtractionConfig{
			DefaultPowerFactor: v.GetFloat64("pipeline.extraction.default_power_factor"),
			DefaultEfficiency:  v.GetFloat64("pipeline.extraction.default_efficiency"),
			DefaultPhases:      v.GetInt("pipeline.extraction.default_phases"),
			DefaultVoltageV:    v.GetFloat64("pipeline.extraction.default_voltage_v"),
		},
		ParallelSheets:  v.GetBool("pipeline.parallel_sheets"),
		MaxParallel:     v.GetInt("pipeline.max_parallel"),
		ReviewThreshold: v.GetFloat64("pipeline.review_threshold"),
		GrayZonePolicy:  v.GetString("pipeline.gray_zone_policy"),
	}

	cfg.Similarity = SimilarityConfig{
		Provider:    v.GetString("similarity.provider"),
		APIKey:      v.GetString("similarity.api_key"),
		Model:       v.GetString("similarity.model"),
		TimeoutSecs: v.GetInt("similarity.timeout_secs"),
		CacheSize:   v.GetInt("similarity.cache_size"),
	}

	cfg.Store = StoreConfig{Backend: v.GetString("store.backend")}

	cfg.Email = EmailConfig{
		Provider:      v.GetString("email.provider"),
		Region:        v.GetString("email.region"),
		FromAddress:   v.GetString("email.from_address"),
		FromName:      v.GetString("email.from_name"),
		NotifyAddress: v.GetString("email.notify_address"),
	}

	if cfg.Pipeline.Mapping.GrayZoneLow > cfg.Pipeline.Mapping.GrayZoneHigh {
		return nil, fmt.Errorf("invalid gray zone: low %.2f > high %.2f",
			cfg.Pipeline.Mapping.GrayZoneLow, cfg.Pipeline.Mapping.GrayZoneHigh)
	}
	switch cfg.Store.Backend {
	case "memory", "postgres":
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}

	return cfg, nil
}
