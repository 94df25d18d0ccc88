package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	configpkg "github.com/minhyannv/lightswitch-go/pkg/config"
	"github.com/minhyannv/lightswitch-go/pkg/conversation"
	"github.com/minhyannv/lightswitch-go/pkg/lights"
	loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"
	"github.com/minhyannv/lightswitch-go/pkg/tools"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyCompletion is returned when the service answers without choices.
var ErrEmptyCompletion = errors.New("empty completion choices")

const skippedToolCall = "Skipped: only one tool call is handled per turn."

// Completer is the chat-completions call used by AgentLoop. It is satisfied by
// *openai.ChatCompletionService.
type Completer interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// AgentLoop holds the state of one chat session: the conversation, the room
// lights and the tools that act on them.
type AgentLoop struct {
	config      configpkg.Config
	completions Completer
	tools       *tools.Registry
	home        *lights.Home
	store       *conversation.Store
	// keepLen is the history length a failed turn is rolled back to.
	keepLen int

	ctx     context.Context
	logger  loggerpkg.Logger
	verbose bool
}

// New initializes an AgentLoop with the provided context, config, and dependencies.
func New(ctx context.Context, cfg configpkg.Config, opts ...AgentOption) (*AgentLoop, error) {
	cfg = configpkg.Normalize(cfg)
	deps := agentDeps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if deps.logger == nil {
		deps.logger = loggerpkg.NopLogger{}
	}

	loggerpkg.Debug(cfg.Verbose, deps.logger, "agent_loop init", map[string]any{
		"model":       cfg.Model,
		"base_url":    cfg.BaseURL,
		"azure":       cfg.IsAzure(),
		"api_version": cfg.APIVersion,
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	home := lights.NewHome()
	registry, err := tools.New(tools.Context{
		Home:    home,
		Verbose: cfg.Verbose,
		Logger:  deps.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	completions := deps.completions
	if completions == nil {
		completions = newOpenAIClient(cfg)
	}

	return &AgentLoop{
		config:      cfg,
		completions: completions,
		tools:       registry,
		home:        home,
		store:       conversation.NewStore(cfg.SystemPrompt),

		ctx:     ctx,
		logger:  deps.logger,
		verbose: cfg.Verbose,
	}, nil
}

func newOpenAIClient(cfg configpkg.Config) Completer {
	var opts []option.RequestOption
	if cfg.IsAzure() {
		opts = append(opts,
			option.WithBaseURL(azureBaseURL(cfg.BaseURL, cfg.Model)),
			option.WithHeader("api-key", cfg.APIKey),
			option.WithQuery("api-version", cfg.APIVersion),
			// NewClient applies OPENAI_API_KEY from the environment first;
			// Azure rejects a bearer token that is not an Entra ID token.
			option.WithHeaderDel("authorization"),
		)
	} else {
		opts = append(opts,
			option.WithBaseURL(cfg.BaseURL),
			option.WithAPIKey(cfg.APIKey),
		)
	}
	client := openai.NewClient(opts...)
	return &client.Chat.Completions
}

// azureBaseURL points a bare resource endpoint at the deployment named model.
func azureBaseURL(endpoint, model string) string {
	if strings.Contains(endpoint, "/openai/") {
		return endpoint
	}
	return strings.TrimRight(endpoint, "/") + "/openai/deployments/" + url.PathEscape(model) + "/"
}

// Run processes one user input and returns the assistant replies to show.
// A failed turn is rolled back so the history never keeps a request that was
// not answered. Once a tool call has been executed and answered, that pair is
// kept so the model still sees the light change on the next turn.
func (a *AgentLoop) Run(userInput string) ([]string, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return nil, errors.New("user input is required")
	}
	previousLen := a.store.Len()
	a.keepLen = previousLen
	a.store.Append(conversation.UserMessage(userInput))

	completion, err := a.complete(true)
	if err == nil {
		var replies []string
		replies, err = a.processResponse(completion)
		if err == nil {
			return replies, nil
		}
	}

	a.debugf("[verbose] turn failed, discarding %d message(s)", a.store.Len()-a.keepLen)
	a.store.Truncate(a.keepLen)
	if a.keepLen > previousLen {
		loggerpkg.Info(a.logger, "turn failed after a tool call; kept the executed call", map[string]any{
			"kept_messages": a.keepLen - previousLen,
			"lights":        a.lightStates(),
		})
	}
	return nil, err
}

func (a *AgentLoop) lightStates() map[string]bool {
	states := make(map[string]bool, len(lights.Rooms()))
	for _, room := range lights.Rooms() {
		on, _ := a.home.IsOn(string(room))
		states[string(room)] = on
	}
	return states
}

// Reset clears conversation history and keeps only the system prompt.
// Light state is kept.
func (a *AgentLoop) Reset() {
	a.store = conversation.NewStore(a.config.SystemPrompt)
}

// History returns a copy of the conversation so far.
func (a *AgentLoop) History() []conversation.Message {
	return a.store.Snapshot()
}

// Home exposes the light state driven by the tools.
func (a *AgentLoop) Home() *lights.Home {
	return a.home
}

// complete sends the current history. The tool schema is only offered on the
// first call of a turn.
func (a *AgentLoop) complete(withTools bool) (*openai.ChatCompletion, error) {
	if err := a.store.Validate(); err != nil {
		return nil, fmt.Errorf("conversation history: %w", err)
	}
	messages, err := conversation.ToOpenAI(a.store.Snapshot())
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.config.Model),
		Messages: messages,
	}
	if withTools {
		params.Tools = a.tools.Definitions()
	}

	a.debugf("[verbose] sending request: messages=%d tools=%d", len(messages), len(params.Tools))
	completion, err := a.completions.New(a.ctx, params)
	if err != nil {
		return nil, fmt.Errorf("remote completion: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	return completion, nil
}

func (a *AgentLoop) debugf(format string, args ...any) {
	loggerpkg.Debugf(a.verbose, a.logger, format, args...)
}
