package agent

import (
	"github.com/minhyannv/lightswitch-go/pkg/conversation"
	loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"
	"github.com/openai/openai-go"
)

// processResponse records every choice and resolves the tool call it carries,
// returning one reply per choice.
func (a *AgentLoop) processResponse(completion *openai.ChatCompletion) ([]string, error) {
	replies := make([]string, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		message := conversation.FromOpenAI(choice.Message)
		a.store.Append(message)

		if len(message.ToolCalls) == 0 {
			replies = append(replies, message.Content)
			continue
		}

		reply, err := a.dispatch(message.ToolCalls)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// dispatch runs the first tool call, answers the rest as skipped and asks the
// model for a reply to the result.
func (a *AgentLoop) dispatch(calls []conversation.ToolCall) (string, error) {
	call := calls[0]
	a.debugf("[verbose] executing tool call %s(id=%s) args=%s", call.Name, call.ID, call.Arguments)

	output, err := a.tools.Execute(call)
	if err != nil {
		return "", err
	}
	a.store.Append(conversation.ToolMessage(output, call.ID, call.Name))

	if len(calls) > 1 {
		skipped := make([]string, 0, len(calls)-1)
		for _, extra := range calls[1:] {
			skipped = append(skipped, extra.ID)
			a.store.Append(conversation.ToolMessage(skippedToolCall, extra.ID, extra.Name))
		}
		loggerpkg.Warn(a.logger, "only the first tool call is executed", map[string]any{
			"executed": call.ID,
			"skipped":  skipped,
		})
	}
	a.keepLen = a.store.Len()

	followUp, err := a.complete(false)
	if err != nil {
		return "", err
	}
	reply := followUp.Choices[0].Message.Content
	a.store.Append(conversation.Message{Role: conversation.RoleAssistant, Content: reply})
	return reply, nil
}
