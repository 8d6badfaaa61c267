package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent docsearch configuration stored as
// config.toml in the .docsearch/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Generation  GenerationConfig  `toml:"generation"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Timeouts    TimeoutsConfig    `toml:"timeouts"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig holds local storage settings.
type StorageConfig struct {
	// SQLitePath is the database file used by the "sqlite" vector store.
	// Empty means docsearch.sqlite inside the .docsearch/ directory.
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// VectorStoreConfig selects and addresses the document store.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	Conflict   string `toml:"conflict,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// GenerationConfig holds settings for answer generation.
type GenerationConfig struct {
	Enabled         bool   `toml:"enabled"`
	Provider        string `toml:"provider,omitempty"`
	Target          string `toml:"target,omitempty"`
	Model           string `toml:"model,omitempty"`
	MaxContentChars int    `toml:"max_content_chars,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (docsearch ingest, docsearch search). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// TimeoutsConfig bounds each external call. Values are Go duration strings.
type TimeoutsConfig struct {
	Embed    string `toml:"embed,omitempty"`
	Store    string `toml:"store,omitempty"`
	Generate string `toml:"generate,omitempty"`
}

// Parse converts the timeout strings. Empty values parse as zero, which the
// services replace with their own defaults.
func (t TimeoutsConfig) Parse() (embed, store, generate time.Duration, err error) {
	parse := func(name, v string) (time.Duration, error) {
		if v == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for timeouts.%s: %w", name, err)
		}
		return d, nil
	}

	if embed, err = parse("embed", t.Embed); err != nil {
		return 0, 0, 0, err
	}
	if store, err = parse("store", t.Store); err != nil {
		return 0, 0, 0, err
	}
	if generate, err = parse("generate", t.Generate); err != nil {
		return 0, 0, 0, err
	}
	return embed, store, generate, nil
}

// EventsConfig selects the ingestion event stream.
type EventsConfig struct {
	// Provider is "none" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers, dropping blanks.
func (e EventsConfig) BrokerList() []string {
	var brokers []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.conflict": {
		get: func(c *Config) string { return c.VectorStore.Conflict },
		set: func(c *Config, v string) error {
			if v != "overwrite" && v != "reject" {
				return fmt.Errorf("invalid value for vector_store.conflict: %q (expected overwrite or reject)", v)
			}
			c.VectorStore.Conflict = v
			return nil
		},
	},

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"generation.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Generation.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for generation.enabled: %w", err)
			}
			c.Generation.Enabled = b
			return nil
		},
	},
	"generation.provider": stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.target":   stringKey(func(c *Config) *string { return &c.Generation.Target }),
	"generation.model":    stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.max_content_chars": {
		get: func(c *Config) string {
			if c.Generation.MaxContentChars == 0 {
				return ""
			}
			return strconv.Itoa(c.Generation.MaxContentChars)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for generation.max_content_chars: %q", v)
			}
			c.Generation.MaxContentChars = n
			return nil
		},
	},

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"timeouts.embed":    durationKey("timeouts.embed", func(c *Config) *string { return &c.Timeouts.Embed }),
	"timeouts.store":    durationKey("timeouts.store", func(c *Config) *string { return &c.Timeouts.Store }),
	"timeouts.generate": durationKey("timeouts.generate", func(c *Config) *string { return &c.Timeouts.Generate }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}
