// Package genai generates quiz questions through an OpenAI-compatible API.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new generation client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// questionPayload is the JSON object the service is asked to return.
type questionPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Generate requests one multiple-choice question for the topic and
// difficulty, listing avoid as question texts not to repeat. There is no
// internal retry: transport failures surface as model.ErrServiceUnavailable
// and unusable payloads as model.ErrMalformedResponse.
func (c *Client) Generate(ctx context.Context, topic string, difficulty model.Difficulty, avoid []string) (model.Question, error) {
	systemPrompt := buildGenerationPrompt(topic, difficulty, avoid)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Generate the question now."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: %v", model.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return model.Question{}, fmt.Errorf("%w: no choices", model.ErrMalformedResponse)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("generation response", "raw", raw)

	q, err := parseQuestion(raw, topic, difficulty)
	if err != nil {
		return model.Question{}, err
	}
	return q, nil
}

// parseQuestion decodes and validates the service payload into a Question.
func parseQuestion(raw, topic string, difficulty model.Difficulty) (model.Question, error) {
	var payload questionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.Question{}, fmt.Errorf("%w: %v (raw: %s)", model.ErrMalformedResponse, err, raw)
	}

	if strings.TrimSpace(payload.Question) == "" {
		return model.Question{}, fmt.Errorf("%w: empty question text", model.ErrMalformedResponse)
	}
	if len(payload.Options) != model.OptionCount {
		return model.Question{}, fmt.Errorf("%w: got %d options, want %d",
			model.ErrMalformedResponse, len(payload.Options), model.OptionCount)
	}
	answerMatches := false
	for _, opt := range payload.Options {
		if opt == payload.Answer {
			answerMatches = true
			break
		}
	}
	if !answerMatches {
		return model.Question{}, fmt.Errorf("%w: answer %q is not one of the options",
			model.ErrMalformedResponse, payload.Answer)
	}

	return model.Question{
		ID:         uuid.NewString(),
		Topic:      topic,
		Difficulty: difficulty,
		Text:       payload.Question,
		Options:    payload.Options,
		Answer:     payload.Answer,
	}, nil
}

func buildGenerationPrompt(topic string, difficulty model.Difficulty, avoid []string) string {
	var sb strings.Builder
	sb.WriteString("You are a quiz author for a storytelling treasure hunt. ")
	sb.WriteString("Write ONE multiple-choice question in Korean.\n\n")
	sb.WriteString("TOPIC: " + topic + "\n")
	sb.WriteString("DIFFICULTY: " + string(difficulty) + "\n\n")

	if len(avoid) > 0 {
		sb.WriteString("Do NOT repeat or closely paraphrase any of these already-used questions:\n")
		for _, text := range avoid {
			sb.WriteString("- " + text + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("RULES:\n")
	sb.WriteString("- Exactly 4 answer options.\n")
	sb.WriteString("- Exactly one option is correct, and the answer must match that option verbatim.\n")
	sb.WriteString("- Keep the question self-contained; no references to images or prior questions.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"question": "<question text>", "options": ["<a>", "<b>", "<c>", "<d>"], "answer": "<the correct option>"}`)
	sb.WriteString("\n")

	return sb.String()
}
