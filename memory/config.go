package memory

import (
	"fmt"
	"os"
	"regexp"
	"time"

	json "github.com/goccy/go-json"
)

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	// Provider is "remote" (HTTP embeddings API) or "local" (on-device model).
	Provider string `json:"provider"`

	// Remote provider fields.
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`

	// Local provider fields.
	ModelPath     string `json:"model_path,omitempty"`
	TokenizerPath string `json:"tokenizer_path,omitempty"`

	// Dimensions overrides the provider's default vector size. Zero means
	// use the model default.
	Dimensions int `json:"dimensions,omitempty"`

	// Timeout bounds a single remote embedding call. Zero means the
	// provider default.
	Timeout time.Duration `json:"-"`
}

// Settings is the startup configuration for the memory subsystem, loaded
// once and validated before anything opens.
type Settings struct {
	Embedding EmbeddingSettings `json:"embedding"`

	// LexicalPath is the sqlite database file. Default: engram.db.
	LexicalPath string `json:"lexical_path,omitempty"`

	// VectorPath is the vector store directory. Default: engram-vectors.
	VectorPath string `json:"vector_path,omitempty"`

	AutoRecall  *bool `json:"auto_recall,omitempty"`
	AutoCapture *bool `json:"auto_capture,omitempty"`

	MaxCaptureLength int `json:"max_capture_length,omitempty"`
}

// remoteModelDims maps supported remote embedding models to their default
// vector sizes.
var remoteModelDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

var envRefRe = regexp.MustCompile(`\$\{(\w+)\}`)

// LoadSettings reads a JSON settings file, resolves ${VAR} environment
// references, and validates the result. Any problem is fatal for the
// caller: a misconfigured memory subsystem must not start.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	resolved, err := resolveEnv(string(data))
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := json.Unmarshal([]byte(resolved), &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// resolveEnv substitutes ${VAR} references. A reference to an unset or
// empty variable is an error, not a silent empty string.
func resolveEnv(s string) (string, error) {
	var missing string
	out := envRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRefRe.FindStringSubmatch(ref)[1]
		v := os.Getenv(name)
		if v == "" && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("settings: environment variable %s is not set", missing)
	}
	return out, nil
}

// Validate checks provider selection and required fields, and fills
// defaults for the optional ones.
func (s *Settings) Validate() error {
	switch s.Embedding.Provider {
	case "remote":
		if s.Embedding.APIKey == "" {
			return fmt.Errorf("settings: embedding.api_key is required for the remote provider")
		}
		if s.Embedding.Model == "" {
			s.Embedding.Model = "text-embedding-3-small"
		}
		dims, ok := remoteModelDims[s.Embedding.Model]
		if !ok {
			return fmt.Errorf("settings: unsupported embedding model %q", s.Embedding.Model)
		}
		if s.Embedding.Dimensions == 0 {
			s.Embedding.Dimensions = dims
		}
	case "local":
		if s.Embedding.ModelPath == "" {
			return fmt.Errorf("settings: embedding.model_path is required for the local provider")
		}
		if s.Embedding.TokenizerPath == "" {
			return fmt.Errorf("settings: embedding.tokenizer_path is required for the local provider")
		}
		if s.Embedding.Dimensions == 0 {
			s.Embedding.Dimensions = 384
		}
	case "":
		return fmt.Errorf("settings: embedding.provider is required")
	default:
		return fmt.Errorf("settings: unknown embedding provider %q", s.Embedding.Provider)
	}

	if s.LexicalPath == "" {
		s.LexicalPath = "engram.db"
	}
	if s.VectorPath == "" {
		s.VectorPath = "engram-vectors"
	}
	if s.MaxCaptureLength == 0 {
		s.MaxCaptureLength = DefaultMaxCaptureLen
	}
	return nil
}

// ManagerConfig derives a Manager Config from the settings, applying the
// defaults for everything settings does not cover.
func (s *Settings) ManagerConfig() *Config {
	cfg := *DefaultConfig
	if s.AutoRecall != nil {
		cfg.AutoRecall = *s.AutoRecall
	}
	if s.AutoCapture != nil {
		cfg.AutoCapture = *s.AutoCapture
	}
	if s.MaxCaptureLength > 0 {
		cfg.MaxCaptureLength = s.MaxCaptureLength
	}
	return &cfg
}
