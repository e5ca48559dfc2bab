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

// GoogleClient talks to a Google-style calendar REST API. Requests are
// authorized with an OAuth2 bearer token.
type GoogleClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleClient creates a client for a Google-style provider.
func NewGoogleClient(cfg config.ProviderConfig) *GoogleClient {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = cfg.Timeout

	return &GoogleClient{
		name:       cfg.Name,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the configured provider name.
func (c *GoogleClient) Name() string {
	return c.name
}

// googleEvent is the wire shape of an event on a Google-style API.
type googleEvent struct {
	ID         string           `json:"id,omitempty"`
	Summary    string           `json:"summary"`
	Start      googleEventTime  `json:"start"`
	Recurrence []string         `json:"recurrence,omitempty"`
	Extended   googleExtendedPr `json:"extendedProperties"`
}

type googleEventTime struct {
	TimeOfDay string `json:"timeOfDay"`
}

type googleExtendedPr struct {
	Private map[string]string `json:"private"`
}

func googleEventFromAlarm(alarm models.AlarmRecord) googleEvent {
	event := googleEvent{
		Summary: alarm.Name,
		Start:   googleEventTime{TimeOfDay: alarm.Time},
		Extended: googleExtendedPr{
			Private: map[string]string{
				"alarmId": alarm.ID.String(),
				"userId":  alarm.UserID.String(),
			},
		},
	}
	if alarm.Recurrence != "" {
		event.Recurrence = []string{alarm.Recurrence}
	}
	return event
}

// CreateEvent creates a remote event and returns its id.
func (c *GoogleClient) CreateEvent(ctx context.Context, alarm models.AlarmRecord) (string, error) {
	var created googleEvent
	err := c.do(ctx, http.MethodPost, "/calendars/primary/events", googleEventFromAlarm(alarm), &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%s: create returned no event id", c.name)
	}
	return created.ID, nil
}

// UpdateEvent replaces the remote event with the alarm's current state.
func (c *GoogleClient) UpdateEvent(ctx context.Context, eventID string, alarm models.AlarmRecord) error {
	return c.do(ctx, http.MethodPut, "/calendars/primary/events/"+eventID, googleEventFromAlarm(alarm), nil)
}

// DeleteEvent removes the remote event. 404/410 mean it is already gone.
func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/calendars/primary/events/"+eventID, nil)
	if err != nil {
		return err
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

// ListMappings returns the alarm UUID -> event id mapping for events this
// system created, identified by the alarmId extended property.
func (c *GoogleClient) ListMappings(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	var list struct {
		Items []googleEvent `json:"items"`
	}

	path := "/calendars/primary/events?privateExtendedProperty=userId%3D" + userID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	mappings := make(map[uuid.UUID]string, len(list.Items))
	for _, item := range list.Items {
		alarmID, err := uuid.Parse(item.Extended.Private["alarmId"])
		if err != nil {
			continue // not one of ours
		}
		mappings[alarmID] = item.ID
	}

	return mappings, nil
}

func (c *GoogleClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", c.name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
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

func (c *GoogleClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", c.name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
