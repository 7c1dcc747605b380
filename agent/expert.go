package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// DefaultMaxCalls bounds the function calls an expert can make to answer a single prompt.
const DefaultMaxCalls = 8

// Expert represent a chat with a business expert.
//
// Each Complete starts a new chat so that concurrent requests never share history.
type Expert struct {
	Name      string
	ModelName string
	Config    *genai.GenerateContentConfig
	Library   Library
	MaxCalls  int
	Client    *genai.Client
	Logger    logrus.FieldLogger
}

// Complete sends the prompt in a new chat and returns the text of the final answer, after
// serving the function calls the model made on the way.
func (e *Expert) Complete(ctx context.Context, prompt string) (string, error) {
	if e.Client == nil {
		return "", fmt.Errorf("expert %s has no client", e.Name)
	}
	chat, err := e.Client.Chats.Create(ctx, e.ModelName, e.Config, nil)
	if err != nil {
		return "", fmt.Errorf("starting chat with expert %s: %w", e.Name, err)
	}
	content, err := e.ask(ctx, chat, 0, &genai.Part{Text: prompt})
	if err != nil {
		return "", err
	}
	return Text(content), nil
}

// ask is a simple wrapper on top of Chat.Send that serves function calls until the expert
// answers with text.
func (e *Expert) ask(ctx context.Context, chat *genai.Chat, calls int, parts ...*genai.Part) (*genai.Content, error) {
	resp, err := chat.Send(ctx, parts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from expert %s", e.Name)
	}
	content := resp.Candidates[0].Content

	var responses []*genai.Part
	for _, part := range content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		if e.Library == nil {
			return nil, fmt.Errorf("expert %s doesn't know how to make function calls", e.Name)
		}
		if calls >= e.maxCalls() {
			return nil, fmt.Errorf("expert %s exceeded %d function calls", e.Name, e.maxCalls())
		}
		calls++
		e.logger().WithFields(logrus.Fields{"expert": e.Name, "function": part.FunctionCall.Name}).Debug("function call")
		responses = append(responses, &genai.Part{FunctionResponse: e.Library(ctx, part.FunctionCall)})
	}
	if len(responses) == 0 {
		return content, nil
	}
	// Ask again the expert with the responses it asked for until we have a real response.
	return e.ask(ctx, chat, calls, responses...)
}

func (e *Expert) maxCalls() int {
	if e.MaxCalls > 0 {
		return e.MaxCalls
	}
	return DefaultMaxCalls
}

func (e *Expert) logger() logrus.FieldLogger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}

// Text concatenates the text parts of a content, ignoring thoughts.
func Text(c *genai.Content) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
