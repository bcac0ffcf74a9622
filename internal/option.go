package internal

import "github.com/starford/ansuz/internal/llm"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	generator llm.Generator
	contents  llm.ContentGenerator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithModelClient overrides the language-model client, used in tests to
// avoid real provider calls. client must implement both the single-prompt
// and conversation surfaces, as *llm.Client does.
func WithModelClient(gen llm.Generator, contents llm.ContentGenerator) Option {
	return func(a *application) {
		a.generator = gen
		a.contents = contents
	}
}
