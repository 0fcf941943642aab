package core

// ToolDefinition describes a capability exposed to the host runtime.
// InputSchema is a JSON Schema object, built with the helpers in the tools
// package. The host decides how to register and invoke the tool.
type ToolDefinition struct {
	ToolName        string
	ToolDescription string
	InputSchema     map[string]interface{}
}
