package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/config"
	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// CalDAVClient pushes alarms to a CalDAV-style server as individual .ics
// resources under a per-user collection, using basic auth. The provider
// event id is the collection-relative path ("<user>/alarm-<uuid>.ics"), so
// every verb addresses the same resource and mappings can be rebuilt from a
// collection listing alone.
type CalDAVClient struct {
	name       string
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewCalDAVClient creates a client for a CalDAV-style provider.
func NewCalDAVClient(cfg config.ProviderConfig) *CalDAVClient {
	return &CalDAVClient{
		name:     cfg.Name,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the configured provider name.
func (c *CalDAVClient) Name() string {
	return c.name
}

// EventID returns the collection-relative path of an alarm's .ics object.
func EventID(userID, alarmID uuid.UUID) string {
	return userID.String() + "/alarm-" + alarmID.String() + ".ics"
}

// CreateEvent uploads a new .ics resource for the alarm.
func (c *CalDAVClient) CreateEvent(ctx context.Context, alarm models.AlarmRecord) (string, error) {
	eventID := EventID(alarm.UserID, alarm.ID)
	if err := c.put(ctx, eventID, buildICS(alarm)); err != nil {
		return "", err
	}
	return eventID, nil
}

// UpdateEvent overwrites the alarm's .ics resource.
func (c *CalDAVClient) UpdateEvent(ctx context.Context, eventID string, alarm models.AlarmRecord) error {
	return c.put(ctx, eventID, buildICS(alarm))
}

// DeleteEvent removes the .ics resource. 404/410 mean it is already gone.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.baseURL+"/"+eventID, nil)
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

// davMultistatus is the minimal PROPFIND response shape we care about.
type davMultistatus struct {
	XMLName   xml.Name `xml:"DAV: multistatus"`
	Responses []struct {
		Href string `xml:"href"`
	} `xml:"response"`
}

// ListMappings lists the user's collection and rebuilds the mapping. The
// alarm UUID is parsed from the resource name; the mapped event id is the
// collection-relative path so later updates and deletes hit the same URL.
func (c *CalDAVClient) ListMappings(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	req, err := c.newRequest(ctx, "PROPFIND", c.collectionURL(userID), strings.NewReader(propfindBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(ctx, c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", c.name, err)
	}

	if err := classifyStatus(resp.StatusCode, c.name, body); err != nil {
		return nil, err
	}

	var ms davMultistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, fmt.Errorf("%s: decoding multistatus: %w", c.name, err)
	}

	mappings := make(map[uuid.UUID]string)
	for _, r := range ms.Responses {
		name := r.Href
		if i := strings.LastIndex(name, "/"); i != -1 {
			name = name[i+1:]
		}
		if !strings.HasPrefix(name, "alarm-") || !strings.HasSuffix(name, ".ics") {
			continue
		}

		alarmID, err := uuid.Parse(strings.TrimSuffix(strings.TrimPrefix(name, "alarm-"), ".ics"))
		if err != nil {
			continue
		}
		mappings[alarmID] = userID.String() + "/" + name
	}

	return mappings, nil
}

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:"><d:prop><d:resourcetype/></d:prop></d:propfind>`

func (c *CalDAVClient) put(ctx context.Context, eventID, ics string) error {
	req, err := c.newRequest(ctx, http.MethodPut, c.baseURL+"/"+eventID, strings.NewReader(ics))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/calendar; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(ctx, c.name, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return classifyStatus(resp.StatusCode, c.name, body)
}

func (c *CalDAVClient) collectionURL(userID uuid.UUID) string {
	return c.baseURL + "/" + userID.String() + "/"
}

func (c *CalDAVClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", c.name, err)
	}
	req.SetBasicAuth(c.username, c.password)
	return req, nil
}

// buildICS renders a minimal VCALENDAR containing one VEVENT for the alarm.
// The event is anchored on today's date at the alarm's wall-clock time;
// recurrence carries over as an RRULE when present.
func buildICS(alarm models.AlarmRecord) string {
	now := time.Now().UTC()
	start := now.Format("20060102") + "T" + strings.ReplaceAll(alarm.Time, ":", "") + "00"

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//alarm-routine-manager//backend//EN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	b.WriteString("UID:alarm-" + alarm.ID.String() + "\r\n")
	b.WriteString("SUMMARY:" + escapeICSText(alarm.Name) + "\r\n")
	b.WriteString("DTSTAMP:" + now.Format("20060102T150405Z") + "\r\n")
	b.WriteString("DTSTART:" + start + "\r\n")
	if alarm.Recurrence != "" {
		b.WriteString("RRULE:" + alarm.Recurrence + "\r\n")
	}
	if !alarm.Enabled {
		b.WriteString("STATUS:CANCELLED\r\n")
	}
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func escapeICSText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
