package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	Gemini    Gemini
	Interview Interview
	Feedback  Feedback
	Quota     Quota
	Jobs      Jobs
	LogLevel  string
	LogFormat string
}

type Server struct {
	Port        string
	CORSOrigins []string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string `json:"-"`
	Name     string
	SSLMode  string
}

// Redis is optional. When Addr is empty the engine runs with the SQL quota
// gate and the in-process session locker.
type Redis struct {
	Addr     string
	Password string `json:"-"`
	DB       int
}

type Gemini struct {
	ApiKey          string `json:"-"`
	Model           string
	MaxOutputTokens int32
	Temperature     float32
}

type Interview struct {
	InactivityTimeout time.Duration
	ProviderTimeout   time.Duration
	StoreTimeout      time.Duration
	MaxAttempts       int
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	LockTTL           time.Duration
	QuestionCounts    map[string]int
}

// storeCallsPerRequest bounds the store round trips one locked request makes
// besides the provider calls.
const storeCallsPerRequest = 4

// CallBudget is the longest a single SubmitAnswer or End may run: every
// provider attempt timing out twice (the call and its invalid-response
// retry), the backoff waits in between, and the bounded store calls.
func (i Interview) CallBudget() time.Duration {
	attempts := i.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	budget := time.Duration(attempts*2) * i.ProviderTimeout
	budget += time.Duration(attempts-1) * i.BackoffMax
	budget += storeCallsPerRequest * i.StoreTimeout
	return budget
}

// SessionLockTTL is LockTTL raised to the call budget, so a lock held across
// slow provider retries does not lapse before the request finishes.
func (i Interview) SessionLockTTL() time.Duration {
	if budget := i.CallBudget(); i.LockTTL < budget {
		return budget
	}
	return i.LockTTL
}

type Feedback struct {
	RelevanceWeight  float64
	ConfidenceWeight float64
	PositivityWeight float64
	FillerWords      []string
}

type Quota struct {
	// Backend is "sql" or "redis".
	Backend    string
	PlanLimits map[string]int
}

type Jobs struct {
	IdleSweepEnabled bool
	IdleSweepSpec    string
}

// Unlimited marks a plan without a monthly cap.
const Unlimited = -1

var DefaultFillerWords = []string{
	"um", "uh", "like", "you know", "basically", "actually",
	"literally", "sort of", "kind of", "i mean", "well",
	"so", "right", "okay", "yeah",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_MAX_OUTPUT_TOKENS", 1000)
	v.SetDefault("GEMINI_TEMPERATURE", 0.7)
	v.SetDefault("INTERVIEW_INACTIVITY_TIMEOUT", "30m")
	v.SetDefault("INTERVIEW_PROVIDER_TIMEOUT", "30s")
	v.SetDefault("INTERVIEW_STORE_TIMEOUT", "30s")
	v.SetDefault("INTERVIEW_MAX_ATTEMPTS", 3)
	v.SetDefault("INTERVIEW_BACKOFF_INITIAL", "2s")
	v.SetDefault("INTERVIEW_BACKOFF_MAX", "10s")
	v.SetDefault("INTERVIEW_LOCK_TTL", "2m")
	v.SetDefault("FEEDBACK_RELEVANCE_WEIGHT", 1.0)
	v.SetDefault("FEEDBACK_CONFIDENCE_WEIGHT", 1.0)
	v.SetDefault("FEEDBACK_POSITIVITY_WEIGHT", 1.0)
	v.SetDefault("FEEDBACK_FILLER_WORDS", strings.Join(DefaultFillerWords, ","))
	v.SetDefault("QUOTA_BACKEND", "sql")
	v.SetDefault("QUOTA_LIMIT_FREE", 5)
	v.SetDefault("QUOTA_LIMIT_STARTER", 20)
	v.SetDefault("QUOTA_LIMIT_PRO", Unlimited)
	v.SetDefault("QUOTA_LIMIT_ENTERPRISE", Unlimited)
	v.SetDefault("JOBS_IDLE_SWEEP_ENABLED", true)
	v.SetDefault("JOBS_IDLE_SWEEP_SPEC", "@every 5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = v.GetString("SERVER_PORT")
	config.Server.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	config.Database.Host = v.GetString("DATABASE_HOST")
	config.Database.Port = v.GetString("DATABASE_PORT")
	config.Database.User = v.GetString("DATABASE_USER")
	config.Database.Password = v.GetString("DATABASE_PASSWORD")
	config.Database.Name = v.GetString("DATABASE_NAME")
	config.Database.SSLMode = v.GetString("DATABASE_SSLMODE")

	config.Redis.Addr = v.GetString("REDIS_ADDR")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")

	config.Gemini.ApiKey = v.GetString("GEMINI_API_KEY")
	config.Gemini.Model = v.GetString("GEMINI_MODEL")
	config.Gemini.MaxOutputTokens = v.GetInt32("GEMINI_MAX_OUTPUT_TOKENS")
	config.Gemini.Temperature = float32(v.GetFloat64("GEMINI_TEMPERATURE"))

	config.Interview.InactivityTimeout = v.GetDuration("INTERVIEW_INACTIVITY_TIMEOUT")
	config.Interview.ProviderTimeout = v.GetDuration("INTERVIEW_PROVIDER_TIMEOUT")
	config.Interview.StoreTimeout = v.GetDuration("INTERVIEW_STORE_TIMEOUT")
	config.Interview.MaxAttempts = v.GetInt("INTERVIEW_MAX_ATTEMPTS")
	config.Interview.BackoffInitial = v.GetDuration("INTERVIEW_BACKOFF_INITIAL")
	config.Interview.BackoffMax = v.GetDuration("INTERVIEW_BACKOFF_MAX")
	config.Interview.LockTTL = v.GetDuration("INTERVIEW_LOCK_TTL")
	config.Interview.QuestionCounts = DefaultQuestionCounts()

	config.Feedback.RelevanceWeight = v.GetFloat64("FEEDBACK_RELEVANCE_WEIGHT")
	config.Feedback.ConfidenceWeight = v.GetFloat64("FEEDBACK_CONFIDENCE_WEIGHT")
	config.Feedback.PositivityWeight = v.GetFloat64("FEEDBACK_POSITIVITY_WEIGHT")
	config.Feedback.FillerWords = splitList(v.GetString("FEEDBACK_FILLER_WORDS"))

	config.Quota.Backend = strings.ToLower(v.GetString("QUOTA_BACKEND"))
	config.Quota.PlanLimits = map[string]int{
		"free":       v.GetInt("QUOTA_LIMIT_FREE"),
		"starter":    v.GetInt("QUOTA_LIMIT_STARTER"),
		"pro":        v.GetInt("QUOTA_LIMIT_PRO"),
		"enterprise": v.GetInt("QUOTA_LIMIT_ENTERPRISE"),
	}

	config.Jobs.IdleSweepEnabled = v.GetBool("JOBS_IDLE_SWEEP_ENABLED")
	config.Jobs.IdleSweepSpec = v.GetString("JOBS_IDLE_SWEEP_SPEC")

	config.LogLevel = v.GetString("LOG_LEVEL")
	config.LogFormat = v.GetString("LOG_FORMAT")

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}

// DefaultQuestionCounts maps difficulty to the number of questions asked.
func DefaultQuestionCounts() map[string]int {
	return map[string]int{
		"beginner":     5,
		"intermediate": 7,
		"advanced":     10,
	}
}

// Default returns a configuration with every default applied and no
// external services configured. Tests build on it.
func Default() *Config {
	return &Config{
		Server: Server{Port: "8080", CORSOrigins: []string{"*"}},
		Gemini: Gemini{Model: "gemini-1.5-flash", MaxOutputTokens: 1000, Temperature: 0.7},
		Interview: Interview{
			InactivityTimeout: 30 * time.Minute,
			ProviderTimeout:   30 * time.Second,
			StoreTimeout:      30 * time.Second,
			MaxAttempts:       3,
			BackoffInitial:    2 * time.Second,
			BackoffMax:        10 * time.Second,
			LockTTL:           2 * time.Minute,
			QuestionCounts:    DefaultQuestionCounts(),
		},
		Feedback: Feedback{
			RelevanceWeight:  1,
			ConfidenceWeight: 1,
			PositivityWeight: 1,
			FillerWords:      append([]string(nil), DefaultFillerWords...),
		},
		Quota: Quota{
			Backend: "sql",
			PlanLimits: map[string]int{
				"free":       5,
				"starter":    20,
				"pro":        Unlimited,
				"enterprise": Unlimited,
			},
		},
		Jobs:      Jobs{IdleSweepEnabled: true, IdleSweepSpec: "@every 5m"},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
