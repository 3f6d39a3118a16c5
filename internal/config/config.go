package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CLAIMWATCH_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CLAIMWATCH_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// Validate rejects malformed tuning values. Called once at startup; a bad
// threshold is fatal there, never discovered mid-run.
func Validate() error {
	if t := ClaimSimThreshold(); t <= 0 || t > 1 {
		return fmt.Errorf("CLAIM_SIM_THRESHOLD must be in (0,1], got %v", t)
	}
	if d := DecayDays(); d <= 0 {
		return fmt.Errorf("DECAY_DAYS must be positive, got %d", d)
	}
	if i := ReconcileInterval(); i <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive, got %v", i)
	}
	if i := DecayInterval(); i <= 0 {
		return fmt.Errorf("DECAY_INTERVAL must be positive, got %v", i)
	}
	if d := EmbeddingDim(); d <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", d)
	}
	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

func EmbeddingModel() string {
	return os.Getenv("EMBEDDING_MODEL")
}

// EmbeddingDim is the dimension of the claim/evidence vector columns.
// Defaults to 1536 (text-embedding-3-small).
func EmbeddingDim() int {
	raw := os.Getenv("EMBEDDING_DIM")
	if raw == "" {
		return 1536
	}
	dim, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return dim
}

// StanceProvider returns the configured stance classifier.
// Valid values: ollama, heuristic, mock
func StanceProvider() string {
	p := os.Getenv("STANCE_PROVIDER")
	if p == "" {
		return "heuristic"
	}
	return p
}

func OllamaURL() string {
	u := os.Getenv("OLLAMA_URL")
	if u == "" {
		return "http://localhost:11434"
	}
	return u
}

func OllamaModel() string {
	return os.Getenv("OLLAMA_MODEL")
}

// ClaimSimThreshold is the cosine similarity above which two claim texts
// merge into one canonical claim. Defaults to 0.85.
func ClaimSimThreshold() float64 {
	raw := os.Getenv("CLAIM_SIM_THRESHOLD")
	if raw == "" {
		return 0.85
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return -1
	}
	return t
}

// DecayDays is how long a claim may go unseen before the decay sweep relaxes
// its confidence. Defaults to 30.
func DecayDays() int {
	raw := os.Getenv("DECAY_DAYS")
	if raw == "" {
		return 30
	}
	d, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return d
}

// ReconcileInterval is the evolution agent cadence. Defaults to 10 minutes.
func ReconcileInterval() time.Duration {
	raw := os.Getenv("RECONCILE_INTERVAL")
	if raw == "" {
		return 10 * time.Minute
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return -1
	}
	return d
}

// DecayInterval is the decay sweep cadence. Defaults to 24 hours.
func DecayInterval() time.Duration {
	raw := os.Getenv("DECAY_INTERVAL")
	if raw == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return -1
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
