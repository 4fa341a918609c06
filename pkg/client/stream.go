package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"

	"github.com/ubseds/firestand/pkg/events"
	"github.com/ubseds/firestand/pkg/types"
)

// Live streams frames from the daemon's /live websocket until ctx is done
// or fn returns an error.
func (c *Client) Live(ctx context.Context, interval time.Duration, fn func(types.LiveFrame) error) error {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialUnix(ctx, c.socketPath)
		},
		HandshakeTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("ws://unix/live?interval=%d", interval.Milliseconds())
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return pkgerrors.Wrapf(err, "websocket handshake failed with %d", resp.StatusCode)
		}
		return pkgerrors.Wrap(err, "failed to open live stream")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var frame types.LiveFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return pkgerrors.Wrap(err, "live stream interrupted")
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}

// Events reads the daemon's server-sent event stream until ctx is done or
// fn returns an error.
func (c *Client) Events(ctx context.Context, fn func(events.Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	var ev events.Event
	var data strings.Builder
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			// Blank line ends an event.
			if ev.Name != "" || data.Len() > 0 {
				ev.Data = []byte(data.String())
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = events.Event{}
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return pkgerrors.Wrap(err, "event stream interrupted")
	}
	return nil
}
