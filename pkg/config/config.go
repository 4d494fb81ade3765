package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// DefaultMenuServiceURL is the production gateway serving the restaurant menu.
const DefaultMenuServiceURL = "https://gateway-app.mangofield-91faac5e.southeastasia.azurecontainerapps.io/api/menu?restaurantId=1"

// AI provider names.
const (
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

// Vector store backends.
const (
	VectorStoreMemory   = "memory"
	VectorStorePgVector = "pgvector"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port      string
	AppName   string
	StaticDir string
	LogLevel  string
	LogFormat string

	AIProvider string

	// Azure OpenAI
	AzureAPIKey              string
	AzureEndpoint            string
	AzureDeployment          string
	AzureAPIVersion          string
	AzureEmbeddingDeployment string

	// Ollama, used when AIProvider is "ollama"
	OllamaEmbedURL   string
	OllamaEmbedModel string
	OllamaEmbedToken string
	OllamaChatURL    string
	OllamaChatModel  string
	OllamaChatToken  string

	AIRequestTimeout time.Duration

	// Document store
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Upstream menu service
	MenuServiceURL string
	MenuTimeout    time.Duration

	// Weather tool (disabled when empty)
	WeatherAPIKey  string
	WeatherBaseURL string

	// Similarity index
	VectorStore    string
	DatabaseURL    string
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	RetrieverTopK  int

	// Agent
	AgentMaxIterations    int
	AgentMaxExecutionTime time.Duration
	AgentSynthesisTimeout time.Duration

	// Session memory
	SessionTTL      time.Duration
	SessionMaxTurns int

	// Scheduler
	SyncInterval time.Duration

	AskRatePerMinute int

	// MCP
	MCPEnabled bool
	MCPPort    string

	RestaurantProfilePath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:      envOrDefault("PORT", "8000"),
		AppName:   envOrDefault("APP_NAME", "NO18 Restaurant Chatbot"),
		StaticDir: envOrDefault("STATIC_DIR", "static"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),

		AIProvider: strings.ToLower(envOrDefault("AI_PROVIDER", ProviderAzure)),

		AzureAPIKey:              os.Getenv("AZURE_API_KEY"),
		AzureEndpoint:            os.Getenv("AZURE_ENDPOINT"),
		AzureDeployment:          os.Getenv("AZURE_DEPLOYMENT"),
		AzureAPIVersion:          envOrDefault("AZURE_API_VERSION", os.Getenv("AZURE_API_VERSION_1")),
		AzureEmbeddingDeployment: envOrDefault("AZURE_EMBEDDING_DEPLOYMENT", "text-embedding-3-large"),

		OllamaEmbedURL:   envOrDefault("OLLAMA_EMBED_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaEmbedModel: envOrDefault("OLLAMA_EMBED_MODEL", "bge-m3"),
		OllamaEmbedToken: os.Getenv("OLLAMA_EMBED_TOKEN"),
		OllamaChatURL:    envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaChatModel:  envOrDefault("OLLAMA_CHAT_MODEL", "qwen3"),
		OllamaChatToken:  os.Getenv("OLLAMA_CHAT_TOKEN"),

		AIRequestTimeout: envOrDefaultDuration("AI_REQUEST_TIMEOUT", 2*time.Minute),

		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   envOrDefault("MONGO_DATABASE", "restaurant_db"),
		MongoCollection: envOrDefault("MONGO_COLLECTION", "menu_items"),

		MenuServiceURL: envOrDefault("MENU_SERVICE_URL", DefaultMenuServiceURL),
		MenuTimeout:    envOrDefaultDuration("MENU_SERVICE_TIMEOUT", 30*time.Second),

		WeatherAPIKey:  os.Getenv("OPENWEATHERMAP_API_KEY"),
		WeatherBaseURL: envOrDefault("OPENWEATHERMAP_BASE_URL", "https://api.openweathermap.org"),

		VectorStore:    strings.ToLower(envOrDefault("VECTOR_STORE", VectorStoreMemory)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ChunkSize:      envOrDefaultInt("CHUNK_SIZE", 300),
		ChunkOverlap:   envOrDefaultInt("CHUNK_OVERLAP", 30),
		EmbedBatchSize: envOrDefaultInt("EMBED_BATCH_SIZE", 16),
		RetrieverTopK:  envOrDefaultInt("RETRIEVER_TOP_K", 5),

		AgentMaxIterations:    envOrDefaultInt("AGENT_MAX_ITERATIONS", 25),
		AgentMaxExecutionTime: envOrDefaultDuration("AGENT_MAX_EXECUTION_TIME", 60*time.Second),
		AgentSynthesisTimeout: envOrDefaultDuration("AGENT_SYNTHESIS_TIMEOUT", 10*time.Second),

		SessionTTL:      envOrDefaultDuration("SESSION_TTL", 24*time.Hour),
		SessionMaxTurns: envOrDefaultInt("SESSION_MAX_TURNS", 0),

		SyncInterval: envOrDefaultDuration("SYNC_INTERVAL", time.Hour),

		AskRatePerMinute: envOrDefaultInt("ASK_RATE_PER_MINUTE", 30),

		MCPEnabled: envOrDefaultBool("MCP_ENABLED", false),
		MCPPort:    envOrDefault("MCP_PORT", "8001"),

		RestaurantProfilePath: os.Getenv("RESTAURANT_PROFILE"),
	}
}

// Validate reports settings without which the chat model cannot be initialized.
// Missing document store or menu settings only degrade the service and are not
// reported here.
func (c *Config) Validate() error {
	var missing []string
	switch c.AIProvider {
	case ProviderAzure:
		for name, v := range map[string]string{
			"AZURE_API_KEY":     c.AzureAPIKey,
			"AZURE_ENDPOINT":    c.AzureEndpoint,
			"AZURE_DEPLOYMENT":  c.AzureDeployment,
			"AZURE_API_VERSION": c.AzureAPIVersion,
		} {
			if v == "" {
				missing = append(missing, name)
			}
		}
	case ProviderOllama:
		if c.OllamaChatURL == "" {
			missing = append(missing, "OLLAMA_CHAT_URL")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}

	if c.VectorStore == VectorStorePgVector && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", port.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// MaskedMongoURI returns the Mongo URI with credentials hidden, for logging.
func (c *Config) MaskedMongoURI() string {
	if c.MongoURI == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(c.MongoURI, "://")
	if !ok {
		return "***"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envOrDefaultDuration accepts Go durations ("90s", "1h") or a bare number of seconds.
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
