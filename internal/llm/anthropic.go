package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 16000

// NativeClient talks to the Anthropic API with extended thinking and
// ephemeral prompt caching enabled. Thinking blocks returned by the model
// are echoed back verbatim on subsequent turns.
type NativeClient struct {
	api       *anthropic.Client
	model     anthropic.Model
	fastModel anthropic.Model
	timeout   time.Duration
}

// NewNativeClient creates the native-mode client. fastModel is used for
// single-shot Complete calls; pass "" to reuse model.
func NewNativeClient(apiKey, model, fastModel string, timeout time.Duration) *NativeClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := anthropic.NewClient(opts...)
	if fastModel == "" {
		fastModel = model
	}
	return &NativeClient{
		api:       &client,
		model:     anthropic.Model(model),
		fastModel: anthropic.Model(fastModel),
		timeout:   timeout,
	}
}

func (c *NativeClient) Name() string { return "anthropic-native" }

// Converse starts a tool-enabled conversation. The system prompt carries an
// ephemeral cache_control marker so repeated iterations reuse the server-side
// prompt cache.
func (c *NativeClient) Converse(system string, tools []ToolDef) Conversation {
	return &anthropicConversation{
		api:   c.api,
		model: c.model,
		system: []anthropic.TextBlockParam{{
			Text:         system,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}},
		tools:    toAnthropicTools(tools),
		thinking: true,
	}
}

// Complete performs a single tool-less call on the fast model.
func (c *NativeClient) Complete(ctx context.Context, system, prompt string) (string, int64, error) {
	return complete(ctx, c.api, c.fastModel, system, prompt)
}

// BasicClient is the simpler strategy: plain messages, no extended thinking,
// no prompt caching. Used when the native feature set is unavailable.
type BasicClient struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewBasicClient creates the basic-mode client.
func NewBasicClient(apiKey, model string, timeout time.Duration) *BasicClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := anthropic.NewClient(opts...)
	return &BasicClient{api: &client, model: anthropic.Model(model)}
}

func (c *BasicClient) Name() string { return "anthropic-basic" }

func (c *BasicClient) Converse(system string, tools []ToolDef) Conversation {
	return &anthropicConversation{
		api:    c.api,
		model:  c.model,
		system: []anthropic.TextBlockParam{{Text: system}},
		tools:  toAnthropicTools(tools),
	}
}

func (c *BasicClient) Complete(ctx context.Context, system, prompt string) (string, int64, error) {
	return complete(ctx, c.api, c.model, system, prompt)
}

// anthropicConversation keeps the SDK-native message history so thinking
// blocks survive round trips unchanged.
type anthropicConversation struct {
	api      *anthropic.Client
	model    anthropic.Model
	system   []anthropic.TextBlockParam
	tools    []anthropic.ToolUnionParam
	thinking bool
	messages []anthropic.MessageParam
}

func (cv *anthropicConversation) Send(ctx context.Context, user UserTurn, reasoningBudget int64) (*Turn, error) {
	if len(user.ToolResults) > 0 {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(user.ToolResults))
		for _, tr := range user.ToolResults {
			blocks = append(blocks, anthropic.NewToolResultBlock(tr.ID, tr.Content, tr.IsError))
		}
		cv.messages = append(cv.messages, anthropic.NewUserMessage(blocks...))
	} else {
		cv.messages = append(cv.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(user.Text)))
	}

	params := anthropic.MessageNewParams{
		Model:     cv.model,
		MaxTokens: defaultMaxTokens,
		System:    cv.system,
		Messages:  cv.messages,
		Tools:     cv.tools,
	}
	if cv.thinking && reasoningBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(reasoningBudget)
		// Extended thinking requires temperature 1.
		params.Temperature = anthropic.Float(1)
	}

	msg, err := cv.api.Messages.New(ctx, params)
	if err != nil && cv.thinking && reasoningBudget > 0 {
		// Retry once without thinking before giving up.
		params.Thinking = anthropic.ThinkingConfigParamUnion{}
		params.Temperature = anthropic.Float(0)
		msg, err = cv.api.Messages.New(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Keep the assistant turn verbatim, thinking blocks included.
	cv.messages = append(cv.messages, msg.ToParam())

	turn := &Turn{TokensUsed: msg.Usage.InputTokens + msg.Usage.OutputTokens}
	var texts []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &args)
			}
			turn.ToolRequests = append(turn.ToolRequests, ToolRequest{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			})
		}
	}
	turn.Text = strings.Join(texts, "\n")
	return turn, nil
}

func complete(ctx context.Context, api *anthropic.Client, model anthropic.Model, system, prompt string) (string, int64, error) {
	msg, err := api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 8192,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("anthropic API call: %w", err)
	}
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", 0, fmt.Errorf("no text content in API response")
	}
	return text, msg.Usage.InputTokens + msg.Usage.OutputTokens, nil
}

func toAnthropicTools(tools []ToolDef) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		props := map[string]any{}
		for name, p := range t.Properties {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[name] = prop
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   t.Required,
				},
			},
		})
	}
	return out
}
