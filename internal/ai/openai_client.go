package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{
		Transport: &errorBodyTransport{base: http.DefaultTransport},
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

func (c *OpenAIClient) GetReply(
	ctx context.Context,
	systemPrompt string,
	userMessage string,
) (Reply, error) {

	history := []Message{
		{Role: openai.ChatMessageRoleSystem, Text: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Text: userMessage},
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}

	ctx, errBody := withErrorBody(ctx)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		if upstream := asUpstreamError(err, errBody.get()); upstream != nil {
			log.Printf("[ai] OpenAI error: status=%d body=%s", upstream.StatusCode, upstream.Body)
			return Reply{}, upstream
		}
		log.Println("[ai] OpenAI request failed:", err)
		return Reply{}, err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		log.Println("[ai] raw response marshal failed:", err)
		raw = nil
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		log.Println("[ai] empty choices")
		text = NoReply
	}

	return Reply{Text: text, Raw: raw}, nil
}

// asUpstreamError converts go-openai status errors, preferring the raw
// response body. Transport failures return nil.
func asUpstreamError(err error, raw []byte) *UpstreamError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		body := string(raw)
		if body == "" {
			body = apiErr.Message
		}
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Body: body}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		body := string(raw)
		if body == "" {
			body = string(reqErr.Body)
		}
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return nil
}
