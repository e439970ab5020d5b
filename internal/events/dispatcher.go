// Package events carries state-change notifications out of the core.
// Delivery is fire-and-forget: a failed or slow dispatch is logged and never
// affects the state transition that produced it.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/models"
	"gorm.io/gorm"
)

// Event kinds forwarded to team webhooks.
const (
	EventTaskCreated   = "task_created"
	EventTaskCompleted = "task_completed"
	EventLevelUp       = "level_up"
	EventStatusChanged = "status_changed"
)

// Dispatcher accepts (team, event kind, payload) and delivers asynchronously.
type Dispatcher interface {
	Dispatch(teamID uint64, event string, payload map[string]interface{})
}

// WebhookSettings is the per-team webhook configuration stored in
// Team.SettingsJSON.
type WebhookSettings struct {
	Enabled bool     `json:"enabled"`
	URL     string   `json:"url"`
	Events  []string `json:"events,omitempty"`
}

type teamSettings struct {
	Webhooks *WebhookSettings `json:"webhooks,omitempty"`
}

// WebhookDispatcher POSTs Slack/Discord-compatible messages to the team's
// configured webhook URL.
type WebhookDispatcher struct {
	db     *gorm.DB
	client *http.Client
	log    *logger.Logger
}

// NewWebhookDispatcher creates a WebhookDispatcher with a bounded request
// timeout so a dead endpoint cannot pile up goroutines indefinitely.
func NewWebhookDispatcher(db *gorm.DB, timeout time.Duration, log *logger.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		db:     db,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Dispatch hands the event to a background goroutine and returns
// immediately. The settings lookup runs there too, keeping it off the
// state-transition path.
func (d *WebhookDispatcher) Dispatch(teamID uint64, event string, payload map[string]interface{}) {
	go d.deliver(teamID, event, payload)
}

func (d *WebhookDispatcher) deliver(teamID uint64, event string, payload map[string]interface{}) {
	var team models.Team
	if err := d.db.First(&team, teamID).Error; err != nil {
		d.log.Warn("webhook team lookup failed", "team_id", teamID, "error", err)
		return
	}

	settings := parseSettings(team.SettingsJSON)
	webhooks := settings.Webhooks
	if webhooks == nil || !webhooks.Enabled || webhooks.URL == "" {
		return
	}
	if len(webhooks.Events) > 0 && !contains(webhooks.Events, event) {
		return
	}

	d.post(teamID, webhooks.URL, FormatMessage(event, payload, team.Name))
}

func (d *WebhookDispatcher) post(teamID uint64, url, text string) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		d.log.Error("webhook payload marshal failed", "team_id", teamID, "error", err)
		return
	}

	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		d.log.Warn("webhook dispatch failed", "team_id", teamID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.log.Warn("webhook endpoint rejected event", "team_id", teamID, "status", resp.StatusCode)
	}
}

// FormatMessage renders an event as a single chat line.
func FormatMessage(event string, payload map[string]interface{}, teamName string) string {
	prefix := fmt.Sprintf("[%s]", teamName)
	switch event {
	case EventTaskCompleted:
		return fmt.Sprintf("%s %v completed %q (+%v XP)", prefix, payload["userName"], payload["taskTitle"], payload["xpEarned"])
	case EventTaskCreated:
		return fmt.Sprintf("%s %v created a new task: %q", prefix, payload["userName"], payload["taskTitle"])
	case EventLevelUp:
		return fmt.Sprintf("%s %v leveled up to Level %v - %v!", prefix, payload["userName"], payload["newLevel"], payload["newRank"])
	case EventStatusChanged:
		return fmt.Sprintf("%s %v moved %q from %v to %v", prefix, payload["userName"], payload["taskTitle"], payload["from"], payload["to"])
	default:
		raw, _ := json.Marshal(payload)
		return fmt.Sprintf("%s %s: %s", prefix, event, raw)
	}
}

func parseSettings(raw string) teamSettings {
	var settings teamSettings
	if raw == "" {
		return settings
	}
	// Malformed settings disable notifications rather than failing the caller.
	_ = json.Unmarshal([]byte(raw), &settings)
	return settings
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// NopDispatcher drops every event (used in tests).
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(uint64, string, map[string]interface{}) {}
