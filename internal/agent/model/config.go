package model

// ================ Config ================

// ChatModelConfig configures the underlying Gemini chat model.
type ChatModelConfig struct {
	Model       string  `envconfig:"CHAT_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"CHAT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"CHAT_TEMPERATURE" default:"0.4"`
}

// ChatAgentConfig configures one chat agent instance. Passed explicitly into
// constructors; there is no process-wide settings object.
type ChatAgentConfig struct {
	// SystemMessage seeds the default task prompt when no task messages are given.
	SystemMessage string `envconfig:"AGENT_SYSTEM_MESSAGE" default:"You are a helpful assistant"`
	// ReformatRetries bounds how many times Run re-prompts the model to rewrite
	// unroutable output into a recognized template before falling back to
	// human input.
	ReformatRetries int `envconfig:"AGENT_REFORMAT_RETRIES" default:"1"`
	// Stream enables incremental display of model output during a call.
	Stream bool `envconfig:"AGENT_STREAM" default:"false"`
}

// CacheConfig configures the LLM response cache.
type CacheConfig struct {
	Enabled bool   `envconfig:"CACHE_ENABLED" default:"true"`
	Type    string `envconfig:"CACHE_TYPE" default:"redis"`
	TTL     string `envconfig:"CACHE_TTL" default:"24h"`
}

// CrawlConfig configures the link crawler.
type CrawlConfig struct {
	SeedURL   string `envconfig:"CRAWL_SEED_URL" default:"https://en.wikipedia.org/wiki/Generative_pre-trained_transformer"`
	MaxDepth  int    `envconfig:"CRAWL_MAX_DEPTH" default:"2"`
	Timeout   int    `envconfig:"CRAWL_TIMEOUT" default:"10"`
	UserAgent string `envconfig:"CRAWL_USER_AGENT" default:"langroid-crawler/1.0"`
}

// VecStoreConfig selects and configures the vector store backend.
type VecStoreConfig struct {
	Backend     string `envconfig:"VECSTORE_BACKEND" default:"sqlite"`
	Collection  string `envconfig:"VECSTORE_COLLECTION" default:"doc-chat"`
	StoragePath string `envconfig:"VECSTORE_STORAGE_PATH" default:".data/vecstore.db"`
	EmbedModel  string `envconfig:"VECSTORE_EMBED_MODEL" default:"gemini-embedding-001"`
}

// DocChatConfig configures the document-QA agent.
type DocChatConfig struct {
	// NSimilarDocs is how many passages retrieval supplies per question.
	NSimilarDocs int `envconfig:"DOCCHAT_N_SIMILAR_DOCS" default:"3"`
	// DefaultPaths are ingested when a new collection gets no user inputs.
	DefaultPaths []string `envconfig:"DOCCHAT_DEFAULT_PATHS"`
}
