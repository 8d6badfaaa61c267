package config

const (
	defaultProvider = "ollama"
	defaultTarget   = "http://localhost:11434"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "docsearch"
	defaultConflict         = "overwrite"

	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultGenerationModel = "llama3.2"
	defaultMaxContentChars = 16000

	defaultEmbedTimeout    = "30s"
	defaultStoreTimeout    = "10s"
	defaultGenerateTimeout = "60s"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "docsearch.documents"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
			Conflict:   defaultConflict,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultProvider,
			Target:     defaultTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Generation: GenerationConfig{
			Enabled:         true,
			Provider:        defaultProvider,
			Target:          defaultTarget,
			Model:           defaultGenerationModel,
			MaxContentChars: defaultMaxContentChars,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Timeouts: TimeoutsConfig{
			Embed:    defaultEmbedTimeout,
			Store:    defaultStoreTimeout,
			Generate: defaultGenerateTimeout,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
