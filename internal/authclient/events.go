package authclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skillpath/skillpath/internal/events"
	"github.com/skillpath/skillpath/internal/gate"
)

// Subscribe opens the daemon's session event stream and delivers gate
// events until the returned stop function is called or the context
// ends. Sign-in and refresh events trigger a session re-query so the
// delivered event carries the full session.
func (c *Client) Subscribe(ctx context.Context) (<-chan gate.Event, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/session/events", nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, &StatusError{StatusCode: resp.StatusCode, Message: "event stream rejected"}
	}

	ch := make(chan gate.Event, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		c.readEvents(ctx, resp, ch)
	}()

	return ch, cancel, nil
}

func (c *Client) readEvents(ctx context.Context, resp *http.Response, ch chan<- gate.Event) {
	scanner := bufio.NewScanner(resp.Body)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, ":"):
			// Comment or keepalive
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		case line == "":
			if data.Len() == 0 {
				continue
			}
			ev, ok := c.translate(ctx, data.String())
			data.Reset()
			if !ok {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translate maps a wire event to a gate event. The wire payload only
// carries IDs, so sign-ins and refreshes re-query the full session.
func (c *Client) translate(ctx context.Context, payload string) (gate.Event, bool) {
	var wire events.Event
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		slog.Warn("dropping malformed session event", "error", err)
		return gate.Event{}, false
	}

	switch wire.Type {
	case events.SignedOut:
		return gate.Event{Type: gate.EventSignedOut}, true
	case events.SignedIn, events.Refreshed:
		session, err := c.CurrentSession(ctx)
		if err != nil {
			slog.Warn("session re-query failed after event", "event", wire.Type, "error", err)
			return gate.Event{}, false
		}
		eventType := gate.EventSignedIn
		if wire.Type == events.Refreshed {
			eventType = gate.EventRefreshed
		}
		return gate.Event{Type: eventType, Session: session}, true
	default:
		slog.Warn("dropping unknown session event", "type", wire.Type)
		return gate.Event{}, false
	}
}
