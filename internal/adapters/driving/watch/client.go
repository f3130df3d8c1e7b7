package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Dial connects to a running server's event socket and returns a
// channel of decoded events. The channel closes when the connection
// drops or ctx is cancelled.
func Dial(ctx context.Context, wsURL string) (<-chan domain.Event, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	events := make(chan domain.Event)

	// Close the connection when ctx ends so the read loop unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logger.Debug("watch: connection closed: %v", err)
				}
				return
			}

			var event domain.Event
			if err := json.Unmarshal(msg, &event); err != nil {
				logger.Debug("watch: skipping undecodable event: %v", err)
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
