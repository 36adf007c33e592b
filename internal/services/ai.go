package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type AIService struct {
	client *openai.Client
	now    func() time.Time
}

type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		now:    time.Now,
	}
}

// NewAIServiceWithBaseURL points the client at an OpenAI-compatible endpoint.
func NewAIServiceWithBaseURL(apiKey, baseURL string) *AIService {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		now:    time.Now,
	}
}

// GenerateTasksFromText asks the model to extract personal to-do items from free text
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := s.now().Format("2006-01-02 15:04:05 MST")
	prompt := fmt.Sprintf(`You are a task extraction assistant for a personal to-do list. Extract the concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of the extracted tasks in this shape:
[
  {
    "title": "short task title (at most 140 characters)",
    "description": "details of the task",
    "category": "a one or two word category such as Work, Home or Errands",
    "priority": "one of Low, Medium, High, Urgent",
    "due_date": "deadline in ISO 8601, e.g. 2026-10-28T23:59:59Z, or null when none is stated"
  }
]

Rules:
- Return an empty array [] when there are no tasks
- Convert relative expressions such as "tomorrow" or "next week" to concrete dates
- due_date must be an ISO 8601 string or null
- Return only JSON, with no commentary`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return tasks, nil
}

// stripCodeFence removes a surrounding ```json fence some models add
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
