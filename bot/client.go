// Package bot owns the connection to the homeserver: the client used for
// sending, the sync ingest loop, and the consumers that act on what arrives.
package bot

import (
	"context"

	"github.com/matrix-org/gomatrix"
	"github.com/pkg/errors"

	"github.com/voicewarden/voicewarden/setup/config"
)

// Client wraps the homeserver client with context-aware sending. It is the
// dispatch queue's Sender.
type Client struct {
	mx *gomatrix.Client
}

func NewClient(cfg *config.Global) (*Client, error) {
	mx, err := gomatrix.NewClient(cfg.HomeserverURL, cfg.UserID, cfg.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create homeserver client")
	}
	return &Client{mx: mx}, nil
}

// Matrix exposes the underlying client for the sync loop.
func (c *Client) Matrix() *gomatrix.Client {
	return c.mx
}

// SendCommand sends a text message and returns the resulting event ID. The
// underlying client has no context support, so the call runs in a goroutine
// and the context deadline abandons the wait, not the request.
func (c *Client) SendCommand(ctx context.Context, roomID, text string) (string, error) {
	type sendResult struct {
		eventID string
		err     error
	}
	ch := make(chan sendResult, 1)
	go func() {
		resp, err := c.mx.SendText(roomID, text)
		if err != nil {
			ch <- sendResult{err: err}
			return
		}
		ch <- sendResult{eventID: resp.EventID}
	}()
	select {
	case r := <-ch:
		return r.eventID, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Redact removes an event, best-effort.
func (c *Client) Redact(roomID, eventID string) error {
	_, err := c.mx.RedactEvent(roomID, eventID, &gomatrix.ReqRedact{})
	return err
}
