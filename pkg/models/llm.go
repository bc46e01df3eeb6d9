package models

// CompletionRequest is a single prompt sent to an LLM backend.
type CompletionRequest struct {
	Prompt string
	// Model overrides the backend's configured model when set. Only the
	// Ollama backend honors it.
	Model string
}

// PullRequestRequest describes a pull request opened for generated files.
type PullRequestRequest struct {
	Title string
	Body  string
	Files []string
}
