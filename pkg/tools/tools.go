package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/minhyannv/lightswitch-go/pkg/conversation"
	"github.com/minhyannv/lightswitch-go/pkg/lights"
	loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"
	"github.com/openai/openai-go"
)

// ErrInvalidArguments matches every *ArgumentError.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ArgumentError reports a tool call whose argument payload could not be
// decoded into the tool's typed arguments.
type ArgumentError struct {
	Tool      string
	Arguments string
	Err       error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid arguments %q: %v", e.Tool, e.Arguments, e.Err)
}

func (e *ArgumentError) Unwrap() []error {
	return []error{ErrInvalidArguments, e.Err}
}

type tool interface {
	definition() openai.ChatCompletionToolParam
	execute(argText string) (string, error)
	name() string
}

type Context struct {
	Home    *lights.Home
	Verbose bool
	Logger  loggerpkg.Logger
}

func (c Context) debugf(format string, args ...any) {
	loggerpkg.Debugf(c.Verbose, c.Logger, format, args...)
}

// Registry holds registered tools and handles execution.
type Registry struct {
	registry map[string]tool
	ctx      Context
	params   []openai.ChatCompletionToolParam
}

// New builds a registry with the built-in tools.
func New(ctx Context) (*Registry, error) {
	if ctx.Logger == nil {
		ctx.Logger = loggerpkg.NopLogger{}
	}
	if ctx.Home == nil {
		return nil, errors.New("home is required")
	}
	t := &Registry{
		registry: make(map[string]tool),
		ctx:      ctx,
	}

	toggle, err := newToggleLightTool(ctx)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", ToggleLightSwitch, err)
	}
	t.register(toggle)
	return t, nil
}

func (t *Registry) register(toolImpl tool) {
	t.registry[toolImpl.name()] = toolImpl
	t.params = append(t.params, toolImpl.definition())
	t.ctx.debugf("[verbose] registered tool: %s", toolImpl.name())
}

func (t *Registry) Definitions() []openai.ChatCompletionToolParam {
	return t.params
}

// Execute runs call and returns the text handed back to the model. Unknown
// functions produce a result string, not an error.
func (t *Registry) Execute(call conversation.ToolCall) (string, error) {
	toolImpl, ok := t.registry[call.Name]
	if !ok {
		t.ctx.debugf("[verbose] unknown tool requested: %s", call.Name)
		return fmt.Sprintf("Unknown function: %s", call.Name), nil
	}
	return toolImpl.execute(call.Arguments)
}

// functionParameters renders a schema as the map form the API expects.
func functionParameters(schema *jsonschema.Schema) (openai.FunctionParameters, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params openai.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}
