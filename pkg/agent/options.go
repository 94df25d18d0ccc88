package agent

import loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"

// AgentOption configures optional runtime dependencies for AgentLoop.
type AgentOption func(*agentDeps)

type agentDeps struct {
	logger      loggerpkg.Logger
	completions Completer
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) AgentOption {
	return func(d *agentDeps) {
		d.logger = l
	}
}

// WithCompleter replaces the OpenAI chat-completions client.
func WithCompleter(c Completer) AgentOption {
	return func(d *agentDeps) {
		d.completions = c
	}
}
