package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/engramlabs/engram-go/core"
	"github.com/engramlabs/engram-go/memory"
)

// MemoryToolDefinitions returns the definitions for the memory tools the
// model can call directly, beyond the automatic turn hooks.
func MemoryToolDefinitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			ToolName:        "memory_recall",
			ToolDescription: "Search stored memories about the user and past conversations. Returns the most relevant memories ranked by relevance.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"query": StringProperty("What to search for (topic, entity, or question)"),
				"limit": IntegerProperty("Maximum number of memories to return (default: 6)"),
			}, "query"),
		},
		{
			ToolName:        "memory_store",
			ToolDescription: "Explicitly store a memory about the user. Use when the user asks you to remember something, or states an important durable fact.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"text":       StringProperty("The fact to remember, as a standalone statement"),
				"importance": NumberProperty("How important this is, 0 to 1 (default: 0.5)"),
				"category":   StringEnumProperty("Kind of fact", "preference", "fact", "decision", "entity", "other"),
			}, "text"),
		},
		{
			ToolName:        "memory_stats",
			ToolDescription: "Report how many memories are stored in each index.",
			InputSchema:     ObjectSchema(map[string]interface{}{}),
		},
		{
			ToolName:        "memory_prune",
			ToolDescription: "Delete expired memories and report how many were removed.",
			InputSchema:     ObjectSchema(map[string]interface{}{}),
		},
	}
}

// MemoryHandler dispatches memory tool calls to a Manager.
type MemoryHandler struct {
	manager *memory.Manager
}

// NewMemoryHandler creates a handler bound to the given manager.
func NewMemoryHandler(m *memory.Manager) *MemoryHandler {
	return &MemoryHandler{manager: m}
}

// Handles reports whether name is a memory tool.
func (h *MemoryHandler) Handles(name string) bool {
	switch name {
	case "memory_recall", "memory_store", "memory_stats", "memory_prune":
		return true
	}
	return false
}

// Execute runs one memory tool call and returns a model-readable result
// string. Unknown tool names and invalid input are errors; a rejected store
// is a normal result, not an error, so the model can relay the outcome.
func (h *MemoryHandler) Execute(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	switch name {
	case "memory_recall":
		query, _ := input["query"].(string)
		if query == "" {
			return "", fmt.Errorf("memory_recall: query is required")
		}
		limit := 0
		if v, ok := input["limit"].(float64); ok {
			limit = int(v)
		}
		results := h.manager.Recall(ctx, query, limit)
		if len(results) == 0 {
			return "No matching memories found.", nil
		}
		out := fmt.Sprintf("Found %d memories:\n", len(results))
		for i, r := range results {
			out += fmt.Sprintf("%d. [%s] %s (score %.2f)\n", i+1, r.Category, r.Text, r.Score)
		}
		return out, nil

	case "memory_store":
		text, _ := input["text"].(string)
		if text == "" {
			return "", fmt.Errorf("memory_store: text is required")
		}
		importance, _ := input["importance"].(float64)
		category, _ := input["category"].(string)
		action, fact, err := h.manager.Remember(ctx, text, importance, memory.Category(category))
		if errors.Is(err, memory.ErrRejected) {
			return "Memory rejected: the content did not pass the capture screen.", nil
		}
		if err != nil {
			return "", err
		}
		if action == "duplicate" {
			return "A near-identical memory is already stored.", nil
		}
		return fmt.Sprintf("Stored memory %s [%s/%s].", fact.ID, fact.Category, fact.DecayClass), nil

	case "memory_stats":
		stats, err := h.manager.Stats(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Stored memories: %d facts (lexical), %d vectors (semantic).", stats.Facts, stats.Vectors), nil

	case "memory_prune":
		n, err := h.manager.Prune(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Pruned %d expired memories.", n), nil
	}
	return "", fmt.Errorf("unknown memory tool %q", name)
}
