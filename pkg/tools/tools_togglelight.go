package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/minhyannv/lightswitch-go/pkg/lights"
	"github.com/openai/openai-go"
)

const ToggleLightSwitch = "toggle_light_switch"

// ToggleArgs is the decoded payload of a toggle_light_switch call.
type ToggleArgs struct {
	Room       string `json:"room"`
	IsSwitchOn bool   `json:"isSwitchOn"`
}

type toggleLightTool struct {
	ctx       Context
	params    openai.FunctionParameters
	validator *jsonschema.Resolved
}

func newToggleLightTool(ctx Context) (*toggleLightTool, error) {
	params, err := functionParameters(toggleSchema(true))
	if err != nil {
		return nil, err
	}
	// Room names outside the enum are answered by the tool itself, so the
	// validator only checks shape and types.
	validator, err := toggleSchema(false).Resolve(nil)
	if err != nil {
		return nil, err
	}
	return &toggleLightTool{ctx: ctx, params: params, validator: validator}, nil
}

func toggleSchema(withEnum bool) *jsonschema.Schema {
	room := &jsonschema.Schema{
		Type:        "string",
		Description: "The room of the light (e.g., 'Bathroom')",
	}
	if withEnum {
		for _, r := range lights.Rooms() {
			room.Enum = append(room.Enum, string(r))
		}
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"room": room,
			"isSwitchOn": {
				Type:        "boolean",
				Description: "True if the light should be switched on, otherwise False.",
			},
		},
		Required: []string{"room", "isSwitchOn"},
	}
}

func (t *toggleLightTool) name() string {
	return ToggleLightSwitch
}

func (t *toggleLightTool) definition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        ToggleLightSwitch,
			Description: openai.String("Toggle the light switch of a room in the house. Options: Bathroom, Bedroom, Kitchen."),
			Parameters:  t.params,
		},
	}
}

func (t *toggleLightTool) execute(argText string) (string, error) {
	args, err := t.decode(argText)
	if err != nil {
		t.ctx.debugf("[verbose] %s: failed to parse arguments: %v", ToggleLightSwitch, err)
		return "", err
	}
	t.ctx.debugf("[verbose] %s: room=%s on=%v", ToggleLightSwitch, args.Room, args.IsSwitchOn)

	result := t.ctx.Home.Toggle(args.Room, args.IsSwitchOn)
	t.ctx.debugf("[verbose] %s: %s", ToggleLightSwitch, result)
	return result, nil
}

// decode validates argText against the parameter schema and returns the
// typed arguments.
func (t *toggleLightTool) decode(argText string) (ToggleArgs, error) {
	var instance any
	if err := json.Unmarshal([]byte(argText), &instance); err != nil {
		return ToggleArgs{}, &ArgumentError{Tool: ToggleLightSwitch, Arguments: argText, Err: err}
	}
	if err := t.validator.Validate(instance); err != nil {
		return ToggleArgs{}, &ArgumentError{Tool: ToggleLightSwitch, Arguments: argText, Err: err}
	}

	var args ToggleArgs
	if err := json.Unmarshal([]byte(argText), &args); err != nil {
		return ToggleArgs{}, &ArgumentError{Tool: ToggleLightSwitch, Arguments: argText, Err: err}
	}
	return args, nil
}
