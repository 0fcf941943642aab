//go:build !onnx

package embedder

import (
	"fmt"

	"github.com/engramlabs/engram-go/memory"
)

func newLocal(s memory.EmbeddingSettings) (memory.Embedder, error) {
	return nil, fmt.Errorf("local embedding provider requires a build with the onnx tag")
}
