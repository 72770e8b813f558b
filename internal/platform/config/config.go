// Package config loads engine configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all engine configuration. Values come from the environment
// with an optional .env file for local development.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Completion providers. OpenAI is primary, Google (Gemini) is fallback.
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GoogleModel  string `env:"GOOGLE_MODEL" envDefault:"gemini-2.5-flash-lite"`
	RateLimitRPS int    `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Generation loop.
	MaxAttempts        int           `env:"MAX_ATTEMPTS" envDefault:"4"`
	CompletionTimeout  time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"90s"`
	RequestDeadline    time.Duration `env:"REQUEST_DEADLINE" envDefault:"8m"`
	MaxTokens          int           `env:"MAX_TOKENS" envDefault:"4096"`
	Temperature        float32       `env:"TEMPERATURE" envDefault:"0.7"`
	PromptBudgetChars  int           `env:"PROMPT_BUDGET_CHARS" envDefault:"48000"`
	HistoryLimit       int           `env:"HISTORY_LIMIT" envDefault:"20"`
	PublishWindow      string        `env:"PUBLISH_WINDOW" envDefault:"day"`
	CalibrationMinimum int           `env:"CALIBRATION_MINIMUM" envDefault:"50"`

	// Cannibalization check.
	SimilarityThreshold float32       `env:"SIMILARITY_THRESHOLD" envDefault:"0.88"`
	SimilarityWindow    time.Duration `env:"SIMILARITY_WINDOW" envDefault:"336h"`

	// Audit thresholds.
	AuditMinScore      float32 `env:"AUDIT_MIN_SCORE" envDefault:"0.45"`
	AuditMinConfidence float32 `env:"AUDIT_MIN_CONFIDENCE" envDefault:"0.35"`
	AuditBlockList     string  `env:"AUDIT_BLOCK_LIST" envDefault:""`
	AuditTopN          int     `env:"AUDIT_TOP_N" envDefault:"12"`

	// Scheduler worker.
	SchedulerTickInterval time.Duration `env:"SCHEDULER_TICK_INTERVAL" envDefault:"10m"`
	SchedulerBatchSize    int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"5"`
	DailyGenerationCap    int           `env:"DAILY_GENERATION_CAP" envDefault:"50"`
	FailureCooldown       time.Duration `env:"FAILURE_COOLDOWN" envDefault:"6h"`
	FailureCooldownRuns   int           `env:"FAILURE_COOLDOWN_RUNS" envDefault:"3"`

	// Playbooks.
	PlaybookPath string `env:"PLAYBOOK_PATH" envDefault:"./playbooks.yaml"`

	// Operator alerts (optional).
	AlertBotToken string `env:"ALERT_BOT_TOKEN"`
	AlertChatID   int64  `env:"ALERT_CHAT_ID"`

	// Database pool.
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Load reads configuration from the environment, loading .env first if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}

	if c.PublishWindow != "day" {
		return fmt.Errorf("PUBLISH_WINDOW: only %q is supported, got %q", "day", c.PublishWindow)
	}

	return nil
}

// BlockList returns the audit block-list phrases, trimmed and lowered.
func (c *Config) BlockList() []string {
	if c.AuditBlockList == "" {
		return nil
	}

	parts := strings.Split(c.AuditBlockList, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
