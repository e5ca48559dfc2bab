package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/alarm-routine-manager/backend/internal/config"
	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// OutlookClient talks to an Outlook-style calendar REST API (Graph-like
// paths under /me/events), authorized with an OAuth2 bearer token.
type OutlookClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewOutlookClient creates a client for an Outlook-style provider.
func NewOutlookClient(cfg config.ProviderConfig) *OutlookClient {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = cfg.Timeout

	return &OutlookClient{
		name:       cfg.Name,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the configured provider name.
func (c *OutlookClient) Name() string {
	return c.name
}

// outlookEvent is the wire shape of an event on an Outlook-style API.
type outlookEvent struct {
	ID            string `json:"id,omitempty"`
	Subject       string `json:"subject"`
	StartTime     string `json:"startTime"`
	Recurrence    string `json:"recurrence,omitempty"`
	TransactionID string `json:"transactionId,omitempty"` // carries the alarm UUID
}

func outlookEventFromAlarm(alarm models.AlarmRecord) outlookEvent {
	return outlookEvent{
		Subject:       alarm.Name,
		StartTime:     alarm.Time,
		Recurrence:    alarm.Recurrence,
		TransactionID: alarm.ID.String(),
	}
}

// CreateEvent creates a remote event and returns its id.
func (c *OutlookClient) CreateEvent(ctx context.Context, alarm models.AlarmRecord) (string, error) {
	var created outlookEvent
	if err := c.do(ctx, http.MethodPost, "/me/events", outlookEventFromAlarm(alarm), &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%s: create returned no event id", c.name)
	}
	return created.ID, nil
}

// UpdateEvent replaces the remote event with the alarm's current state.
func (c *OutlookClient) UpdateEvent(ctx context.Context, eventID string, alarm models.AlarmRecord) error {
	return c.do(ctx, http.MethodPatch, "/me/events/"+eventID, outlookEventFromAlarm(alarm), nil)
}

// DeleteEvent removes the remote event. 404/410 mean it is already gone.
func (c *OutlookClient) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/me/events/"+eventID, nil)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", c.name, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(ctx, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return classifyStatus(resp.StatusCode, c.name, body)
}

// ListMappings returns the alarm UUID -> event id mapping, matching events
// whose transaction id parses as an alarm UUID.
func (c *OutlookClient) ListMappings(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	var list struct {
		Value []outlookEvent `json:"value"`
	}

	if err := c.do(ctx, http.MethodGet, "/me/events", nil, &list); err != nil {
		return nil, err
	}

	mappings := make(map[uuid.UUID]string, len(list.Value))
	for _, item := range list.Value {
		alarmID, err := uuid.Parse(item.TransactionID)
		if err != nil {
			continue
		}
		mappings[alarmID] = item.ID
	}

	return mappings, nil
}

func (c *OutlookClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", c.name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", c.name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(ctx, c.name, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, c.name, nil); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decoding response: %w", c.name, err)
		}
	}

	return nil
}
