// Package embedder constructs the configured embedding provider.
package embedder

import (
	"fmt"

	"github.com/engramlabs/engram-go/memory"
	"github.com/engramlabs/engram-go/memory/embedder/openai"
)

// FromSettings builds the embedder selected by the settings. The "local"
// provider needs the onnx build tag; without it the selection is a
// configuration error.
func FromSettings(s memory.EmbeddingSettings) (memory.Embedder, error) {
	switch s.Provider {
	case "remote":
		return openai.New(openai.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
			Timeout:    s.Timeout,
		})
	case "local":
		return newLocal(s)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", s.Provider)
	}
}
