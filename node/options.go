package node

import "github.com/lcagent/lcagent/model"

// Options configure node construction. Not every field applies to every node
// type: ModelName, Tools and SystemPrompt are consumed by chat nodes only.
type Options struct {
	// Name is the optional human-readable node name.
	Name string

	// Metadata seeds the node's metadata map.
	Metadata map[string]any

	// ModelName pins the node to a registered chat model, overriding the
	// owning network's model and the registry default.
	ModelName string

	// Tools are advertised to the chat model as callable functions.
	Tools []model.ToolDefinition

	// SystemPrompt is prepended to the node's declared inputs.
	SystemPrompt string
}

// WithName sets the human-readable node name.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithMetadata seeds node metadata.
func WithMetadata(md map[string]any) func(o *Options) {
	return func(o *Options) { o.Metadata = md }
}

// WithModelName pins the node to a registered chat model.
func WithModelName(name string) func(o *Options) {
	return func(o *Options) { o.ModelName = name }
}

// WithTools advertises tool definitions to the chat model.
func WithTools(tools ...model.ToolDefinition) func(o *Options) {
	return func(o *Options) { o.Tools = tools }
}

// WithSystemPrompt prepends a system message to the node's inputs.
func WithSystemPrompt(prompt string) func(o *Options) {
	return func(o *Options) { o.SystemPrompt = prompt }
}
