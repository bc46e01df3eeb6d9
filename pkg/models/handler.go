package models

// HandlerDefinition describes a specialist declaratively, either built in
// or loaded from the handlers YAML file.
type HandlerDefinition struct {
	Role             string                  `yaml:"role"`
	Skills           []string                `yaml:"skills"`
	QualityStandards map[QualityLevel]string `yaml:"quality_standards,omitempty"`
	// Model overrides the configured Ollama model for this handler.
	Model string `yaml:"model,omitempty"`
	// PullRequest opens a pull request for the generated file when git
	// integration is enabled.
	PullRequest bool `yaml:"pull_request,omitempty"`
	// PromptTemplate is a text/template file, relative to the base path,
	// that replaces the built-in prompt for this handler.
	PromptTemplate string `yaml:"prompt_template,omitempty"`
	// Instructions are appended to the generated prompt.
	Instructions string `yaml:"instructions,omitempty"`
}
