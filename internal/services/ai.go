package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/champquest/champquest-api/internal/constants"
	"github.com/champquest/champquest-api/internal/models"
)

type AIService struct {
	client *openai.Client
}

// ExtractedTask is one task candidate pulled out of free-form text.
// DependsOnTitles references other candidates in the same batch by title.
type ExtractedTask struct {
	Title           string     `json:"title"`
	Notes           string     `json:"notes"`
	Priority        string     `json:"priority"`
	AssignedTo      string     `json:"assigned_to"`
	DueDate         *time.Time `json:"due_date"`
	DependsOnTitles []string   `json:"depends_on_titles"`
}

func NewAIService(apiKey string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// Enabled reports whether an API key was configured.
func (s *AIService) Enabled() bool {
	return s.client != nil
}

// ExtractTasksFromText analyzes text (meeting notes, chat logs) and extracts
// task candidates using OpenAI GPT
func (s *AIService) ExtractTasksFromText(ctx context.Context, text string, memberNames []string) ([]ExtractedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := time.Now().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You are a task extraction assistant for a team task tracker. Extract concrete, actionable tasks from the text below.

Current time: %s
Team members: %s

Text:
%s

Return a JSON array of extracted tasks in this shape:
[
  {
    "title": "short task title",
    "notes": "details, context",
    "priority": "P0, P1, P2 or P3 based on urgency (default P2)",
    "assigned_to": "a team member's name if the text clearly assigns the task, otherwise empty string",
    "due_date": "ISO8601 timestamp, e.g. 2025-10-28T23:59:59Z, or null when no deadline is mentioned",
    "depends_on_titles": ["titles of other tasks in this array that must happen first"]
  }
]

Rules:
- Return an empty array [] if there are no tasks
- Convert relative deadlines (tomorrow, next week) into concrete timestamps
- depends_on_titles may only reference titles that appear in this array
- Return JSON only, no explanation`, currentTime, strings.Join(memberNames, ", "), text)

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

	content := resp.Choices[0].Message.Content

	var tasks []ExtractedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	if len(tasks) > constants.MaxExtractedTasks {
		tasks = tasks[:constants.MaxExtractedTasks]
	}

	for i := range tasks {
		if !models.TaskPriority(tasks[i].Priority).Valid() {
			tasks[i].Priority = string(models.PriorityP2)
		}
	}

	return tasks, nil
}
