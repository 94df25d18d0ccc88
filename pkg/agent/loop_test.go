package agent

import (
	"bytes"
	"context"
	"errors"
	"testing"

	configpkg "github.com/minhyannv/lightswitch-go/pkg/config"
	"github.com/minhyannv/lightswitch-go/pkg/conversation"
	loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"
	"github.com/minhyannv/lightswitch-go/pkg/tools"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"
)

// fakeCompleter replays queued responses and records each request.
type fakeCompleter struct {
	responses []*openai.ChatCompletion
	errs      []error
	requests  []openai.ChatCompletionNewParams
}

func (f *fakeCompleter) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	i := len(f.requests)
	f.requests = append(f.requests, body)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("unexpected request")
	}
	return f.responses[i], nil
}

func textCompletion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Content: content},
	}}}
}

func toolCall(id, args string) openai.ChatCompletionMessageToolCall {
	return openai.ChatCompletionMessageToolCall{
		ID: id,
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      tools.ToggleLightSwitch,
			Arguments: args,
		},
	}
}

func toolCompletion(calls ...openai.ChatCompletionMessageToolCall) *openai.ChatCompletion {
	return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{ToolCalls: calls},
	}}}
}

func testConfig() configpkg.Config {
	cfg := configpkg.DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = "https://api.openai.com/v1"
	return cfg
}

func newTestLoop(t *testing.T, fake *fakeCompleter) *AgentLoop {
	t.Helper()
	loop, err := New(context.Background(), testConfig(), WithCompleter(fake))
	require.NoError(t, err)
	return loop
}

func TestRunToolCallRoundTrip(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{
		toolCompletion(toolCall("call_1", `{"room":"Kitchen","isSwitchOn":true}`)),
		textCompletion("The kitchen light is on."),
	}}
	loop := newTestLoop(t, fake)

	replies, err := loop.Run("turn on the kitchen light")
	require.NoError(t, err)
	require.Equal(t, []string{"The kitchen light is on."}, replies)

	on, _ := loop.Home().IsOn("Kitchen")
	require.True(t, on)

	require.Len(t, fake.requests, 2)
	preCall := len(fake.requests[0].Messages)
	require.Equal(t, 2, preCall)
	require.Len(t, fake.requests[0].Tools, 1)
	require.Equal(t, preCall+2, len(fake.requests[1].Messages))
	require.Empty(t, fake.requests[1].Tools)

	history := loop.History()
	require.Len(t, history, 5)
	require.Equal(t, conversation.RoleAssistant, history[2].Role)
	require.Len(t, history[2].ToolCalls, 1)
	require.Equal(t, conversation.RoleTool, history[3].Role)
	require.Equal(t, "call_1", history[3].ToolCallID)
	require.Equal(t, tools.ToggleLightSwitch, history[3].Name)
	require.Equal(t, "Kitchen light is now switched on.", history[3].Content)
	require.Equal(t, "The kitchen light is on.", history[4].Content)
}

func TestRunPlainReply(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{textCompletion("Hello!")}}
	loop := newTestLoop(t, fake)

	replies, err := loop.Run("hi")
	require.NoError(t, err)
	require.Equal(t, []string{"Hello!"}, replies)
	require.Len(t, fake.requests, 1)

	history := loop.History()
	require.Len(t, history, 3)
	require.Equal(t, conversation.RoleAssistant, history[2].Role)
	require.Equal(t, "Hello!", history[2].Content)
}

func TestRunRemoteFailureRollsBack(t *testing.T) {
	boom := errors.New("connection refused")
	fake := &fakeCompleter{errs: []error{boom}}
	loop := newTestLoop(t, fake)

	_, err := loop.Run("turn on the kitchen light")
	require.ErrorIs(t, err, boom)
	require.Len(t, loop.History(), 1)
}

// TestRunFollowUpFailureKeepsToolResult checks that an executed light change
// stays visible to the model after the follow-up call fails.
func TestRunFollowUpFailureKeepsToolResult(t *testing.T) {
	fake := &fakeCompleter{
		responses: []*openai.ChatCompletion{
			toolCompletion(toolCall("call_1", `{"room":"Bedroom","isSwitchOn":true}`)),
			nil,
			textCompletion("The bedroom light is already on."),
		},
		errs: []error{nil, errors.New("timeout")},
	}
	var logs bytes.Buffer
	loop, err := New(context.Background(), testConfig(),
		WithCompleter(fake),
		WithLogger(loggerpkg.NewWriterLogger(&logs, false)),
	)
	require.NoError(t, err)

	_, err = loop.Run("bedroom on")
	require.Error(t, err)

	on, _ := loop.Home().IsOn("Bedroom")
	require.True(t, on)

	history := loop.History()
	require.Len(t, history, 4)
	require.Equal(t, conversation.RoleAssistant, history[2].Role)
	require.Equal(t, conversation.RoleTool, history[3].Role)
	require.Equal(t, "Bedroom light is now switched on.", history[3].Content)
	require.Contains(t, logs.String(), "kept the executed call")
	require.Contains(t, logs.String(), "Bedroom:true")

	replies, err := loop.Run("is the bedroom light on?")
	require.NoError(t, err)
	require.Equal(t, []string{"The bedroom light is already on."}, replies)
	require.Len(t, fake.requests[2].Messages, 5)
}

func TestRunRejectsInconsistentHistory(t *testing.T) {
	fake := &fakeCompleter{}
	loop := newTestLoop(t, fake)
	loop.store.Append(conversation.ToolMessage("orphan", "call_x", tools.ToggleLightSwitch))

	_, err := loop.Run("hello")
	require.ErrorContains(t, err, "conversation history")
	require.Empty(t, fake.requests)
	require.Len(t, loop.History(), 2)
}

func TestRunInvalidArguments(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{
		toolCompletion(toolCall("call_1", `{"room":"Kitchen",`)),
	}}
	loop := newTestLoop(t, fake)

	_, err := loop.Run("kitchen on")
	require.ErrorIs(t, err, tools.ErrInvalidArguments)
	require.Len(t, fake.requests, 1)
	require.Len(t, loop.History(), 1)
}

func TestRunEmptyCompletion(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{{}}}
	loop := newTestLoop(t, fake)

	_, err := loop.Run("hello")
	require.ErrorIs(t, err, ErrEmptyCompletion)
	require.Len(t, loop.History(), 1)
}

func TestRunOnlyFirstToolCallExecuted(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{
		toolCompletion(
			toolCall("call_1", `{"room":"Kitchen","isSwitchOn":true}`),
			toolCall("call_2", `{"room":"Bedroom","isSwitchOn":true}`),
		),
		textCompletion("Kitchen is on."),
	}}
	loop := newTestLoop(t, fake)

	_, err := loop.Run("kitchen and bedroom on")
	require.NoError(t, err)

	kitchen, _ := loop.Home().IsOn("Kitchen")
	bedroom, _ := loop.Home().IsOn("Bedroom")
	require.True(t, kitchen)
	require.False(t, bedroom)

	history := loop.History()
	require.Equal(t, "call_1", history[3].ToolCallID)
	require.Equal(t, "call_2", history[4].ToolCallID)
	require.Equal(t, skippedToolCall, history[4].Content)
	require.Len(t, fake.requests[1].Messages, 5)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	fake := &fakeCompleter{}
	loop := newTestLoop(t, fake)

	_, err := loop.Run("   ")
	require.Error(t, err)
	require.Empty(t, fake.requests)
}

// TestHistoryOrderingAcrossTurns verifies every tool message follows the
// assistant request it answers.
func TestHistoryOrderingAcrossTurns(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{
		toolCompletion(toolCall("call_1", `{"room":"Kitchen","isSwitchOn":true}`)),
		textCompletion("Kitchen on."),
		textCompletion("Anything else?"),
		toolCompletion(toolCall("call_2", `{"room":"Kitchen","isSwitchOn":true}`)),
		textCompletion("Kitchen was already on."),
		toolCompletion(toolCall("call_3", `{"room":"Garage","isSwitchOn":true}`)),
		textCompletion("There is no garage light."),
	}}
	loop := newTestLoop(t, fake)

	for _, input := range []string{"kitchen on", "thanks", "kitchen on again", "garage on"} {
		_, err := loop.Run(input)
		require.NoError(t, err)
	}

	history := loop.History()
	for i, msg := range history {
		if msg.Role != conversation.RoleTool {
			continue
		}
		prev := history[i-1]
		require.Equal(t, conversation.RoleAssistant, prev.Role, "tool message %d", i)
		require.Len(t, prev.ToolCalls, 1)
		require.Equal(t, prev.ToolCalls[0].ID, msg.ToolCallID)
	}
	require.Equal(t, "Kitchen light is already on.", history[9].Content)
	require.Equal(t, "Unable to find the room: Garage", history[13].Content)

	store := conversation.NewStore("sys")
	store.Append(history[1:]...)
	require.NoError(t, store.Validate())
}

func TestResetKeepsLights(t *testing.T) {
	fake := &fakeCompleter{responses: []*openai.ChatCompletion{
		toolCompletion(toolCall("call_1", `{"room":"Bathroom","isSwitchOn":true}`)),
		textCompletion("Bathroom on."),
	}}
	loop := newTestLoop(t, fake)

	_, err := loop.Run("bathroom on")
	require.NoError(t, err)

	loop.Reset()
	require.Len(t, loop.History(), 1)
	on, _ := loop.Home().IsOn("Bathroom")
	require.True(t, on)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), configpkg.DefaultConfig(), WithCompleter(&fakeCompleter{}))
	require.ErrorIs(t, err, configpkg.ErrMissingCredentials)
}

func TestAzureBaseURL(t *testing.T) {
	require.Equal(t,
		"https://home.openai.azure.com/openai/deployments/gpt-4o-mini/",
		azureBaseURL("https://home.openai.azure.com/", "gpt-4o-mini"),
	)
	require.Equal(t,
		"https://home.openai.azure.com/openai/deployments/custom/",
		azureBaseURL("https://home.openai.azure.com/openai/deployments/custom/", "gpt-4o-mini"),
	)
}
