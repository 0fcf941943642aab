//go:build onnx

package embedder

import (
	"github.com/engramlabs/engram-go/memory"
	"github.com/engramlabs/engram-go/memory/embedder/onnx"
)

func newLocal(s memory.EmbeddingSettings) (memory.Embedder, error) {
	return onnx.New(onnx.Config{
		ModelPath:     s.ModelPath,
		TokenizerPath: s.TokenizerPath,
		Dimensions:    s.Dimensions,
	})
}
