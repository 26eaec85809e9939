package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the full runtime configuration. Values come from the optional
// YAML file named by CONFIG_PATH, then from the environment (a .env file in
// the working directory is loaded first), then from defaults.
type Settings struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	SecretKey   string `yaml:"secretKey"`
	PostgresURI string `yaml:"postgresURI"`
	RedisAddr   string `yaml:"redisAddr"`
	MongoURI    string `yaml:"mongoURI"`
	MongoDB     string `yaml:"mongoDB"`

	LLMProvider    string `yaml:"llmProvider"`
	OpenAIAPIKey   string `yaml:"openaiAPIKey"`
	OpenAIBaseURL  string `yaml:"openaiBaseURL"`
	ChatModel      string `yaml:"chatModel"`
	EmbeddingModel string `yaml:"embeddingModel"`
	EmbeddingDim   int    `yaml:"embeddingDim"`
	ImageModel     string `yaml:"imageModel"`

	VertexProject         string `yaml:"vertexProject"`
	VertexLocation        string `yaml:"vertexLocation"`
	GoogleCredentialsFile string `yaml:"googleCredentialsFile"`

	SummariesPath string   `yaml:"summariesPath"`
	CoverPath     string   `yaml:"coverPath"`
	CoverBucket   string   `yaml:"coverBucket"`
	CORSOrigins   []string `yaml:"corsOrigins"`
	VectorIndex   string   `yaml:"vectorIndex"`

	MaxToolRounds  int           `yaml:"maxToolRounds"`
	ModelTimeout   time.Duration `yaml:"modelTimeout"`
	LoginRateLimit string        `yaml:"loginRateLimit"`
}

const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"

	IndexPGVector = "pgvector"
	IndexMemory   = "memory"
)

func defaults() Settings {
	return Settings{
		Port:           "8080",
		LogLevel:       "info",
		MongoDB:        "bookbot",
		LLMProvider:    ProviderOpenAI,
		ChatModel:      "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   1536,
		ImageModel:     "gpt-image-1",
		VertexLocation: "us-central1",
		SummariesPath:  "book_sum.json",
		CoverPath:      "static/cover.png",
		CORSOrigins:    []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		VectorIndex:    IndexPGVector,
		MaxToolRounds:  5,
		ModelTimeout:   60 * time.Second,
		LoginRateLimit: "10/min",
	}
}

// Load builds Settings. path overrides CONFIG_PATH; both may be empty.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.VectorIndex = strings.ToLower(strings.TrimSpace(cfg.VectorIndex))
	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderVertex:
	default:
		return cfg, fmt.Errorf("config: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	switch cfg.VectorIndex {
	case IndexPGVector, IndexMemory:
	default:
		return cfg, fmt.Errorf("config: unknown VECTOR_INDEX %q", cfg.VectorIndex)
	}
	if cfg.EmbeddingDim <= 0 {
		return cfg, errors.New("config: EMBEDDING_DIM must be positive")
	}
	if _, _, err := ParseRate(cfg.LoginRateLimit); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateServer checks what the HTTP server needs beyond Load.
func (s Settings) ValidateServer() error {
	if strings.TrimSpace(s.SecretKey) == "" {
		return errors.New("config: SECRET_KEY is required")
	}
	if s.PostgresURI == "" {
		return errors.New("config: POSTGRES_URI is required")
	}
	return s.validateModels()
}

// ValidateIndexer checks what loading and searching the book index needs.
func (s Settings) ValidateIndexer() error {
	if s.VectorIndex == IndexPGVector && s.PostgresURI == "" {
		return errors.New("config: POSTGRES_URI is required for the pgvector index")
	}
	return s.validateModels()
}

func (s Settings) validateModels() error {
	// embeddings and images always go through the OpenAI-compatible API
	if s.OpenAIAPIKey == "" {
		return errors.New("config: OPENAI_API_KEY is required")
	}
	if s.LLMProvider == ProviderVertex && s.VertexProject == "" {
		return errors.New("config: VERTEX_PROJECT is required when LLM_PROVIDER=vertex")
	}
	return nil
}

func applyEnv(cfg *Settings) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("SECRET_KEY", &cfg.SecretKey)
	str("POSTGRES_URI", &cfg.PostgresURI)
	str("REDIS_ADDR", &cfg.RedisAddr)
	if cfg.RedisAddr == "" {
		str("REDIS_URL", &cfg.RedisAddr)
	}
	str("MONGO_URI", &cfg.MongoURI)
	str("MONGO_DB", &cfg.MongoDB)
	str("LLM_PROVIDER", &cfg.LLMProvider)
	str("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	str("CHAT_MODEL", &cfg.ChatModel)
	str("EMBEDDING_MODEL", &cfg.EmbeddingModel)
	str("IMAGE_MODEL", &cfg.ImageModel)
	str("VERTEX_PROJECT", &cfg.VertexProject)
	str("VERTEX_LOCATION", &cfg.VertexLocation)
	str("GOOGLE_CREDENTIALS_FILE", &cfg.GoogleCredentialsFile)
	str("SUMMARIES_PATH", &cfg.SummariesPath)
	str("COVER_PATH", &cfg.CoverPath)
	str("COVER_BUCKET", &cfg.CoverBucket)
	str("VECTOR_INDEX", &cfg.VectorIndex)
	str("LOGIN_RATE_LIMIT", &cfg.LoginRateLimit)

	if v := os.Getenv("CORS_ORIGINS"); strings.TrimSpace(v) != "" {
		cfg.CORSOrigins = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"EMBEDDING_DIM", &cfg.EmbeddingDim},
		{"MAX_TOOL_ROUNDS", &cfg.MaxToolRounds},
	}
	for _, it := range ints {
		v := strings.TrimSpace(os.Getenv(it.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", it.key, err)
		}
		*it.dst = n
	}

	if v := strings.TrimSpace(os.Getenv("MODEL_TIMEOUT")); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("config: MODEL_TIMEOUT: %w", err)
		}
		cfg.ModelTimeout = d
	}
	return nil
}

// parseSeconds accepts a Go duration ("90s") or a bare number of seconds.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// ParseRate reads limits such as "10/min", "5/30s" or "100/hour".
func ParseRate(v string) (int, time.Duration, error) {
	count, unit, ok := strings.Cut(strings.TrimSpace(v), "/")
	if !ok {
		return 0, 0, fmt.Errorf("config: rate %q must look like N/window", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n < 0 {
		return 0, 0, fmt.Errorf("config: rate %q has a bad count", v)
	}
	var window time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "s", "sec", "second":
		window = time.Second
	case "m", "min", "minute":
		window = time.Minute
	case "h", "hour":
		window = time.Hour
	default:
		window, err = time.ParseDuration(unit)
		if err != nil || window < time.Millisecond {
			return 0, 0, fmt.Errorf("config: rate %q has a bad window", v)
		}
	}
	return n, window, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
