package provider

import (
	"fmt"

	"github.com/alarm-routine-manager/backend/internal/config"
)

// BuildClients constructs one client per configured provider, keyed by
// provider name. The kind selects the implementation.
func BuildClients(cfgs []config.ProviderConfig) (map[string]Client, error) {
	clients := make(map[string]Client, len(cfgs))

	for _, cfg := range cfgs {
		switch cfg.Kind {
		case "google":
			clients[cfg.Name] = NewGoogleClient(cfg)
		case "outlook":
			clients[cfg.Name] = NewOutlookClient(cfg)
		case "caldav":
			clients[cfg.Name] = NewCalDAVClient(cfg)
		default:
			return nil, fmt.Errorf("unknown provider kind %q for %s", cfg.Kind, cfg.Name)
		}
	}

	return clients, nil
}
