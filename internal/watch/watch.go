// Package watch follows the metrics push channel of a running server.
package watch

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/wesleyorama2/loadlab/internal/metrics"
)

// StreamPath is the server route of the push channel.
const StreamPath = "/metrics/ws"

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 1 << 20
)

// ErrStop can be returned by a Handler to end Watch without an error.
var ErrStop = errors.New("stop watching")

// Handler receives every pushed snapshot in order.
type Handler func(metrics.Snapshot) error

// Client reads snapshots from the push channel.
type Client struct {
	url    string
	dialer websocket.Dialer
}

// NewClient creates a client for rawURL. http and https URLs are mapped to
// ws and wss, and a URL without a path targets StreamPath.
func NewClient(rawURL string) (*Client, error) {
	target, err := StreamURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:    target,
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}, nil
}

// URL returns the websocket URL the client dials.
func (c *Client) URL() string {
	return c.url
}

// StreamURL normalizes rawURL into a push channel URL.
func StreamURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", rawURL)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported scheme %q in %q", u.Scheme, rawURL)
	}
	if u.Host == "" {
		return "", errors.Errorf("missing host in %q", rawURL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = StreamPath
	}
	return u.String(), nil
}

// Watch connects and calls handle for every snapshot until ctx is done,
// the server goes away, or handle returns an error. ErrStop, a cancelled
// ctx and a clean close by the server all end Watch with a nil error.
func (c *Client) Watch(ctx context.Context, handle Handler) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", c.url)
	}
	defer conn.Close()
	log.WithField("url", c.url).Debug("Connected to metrics stream")

	// Unblocks ReadMessage when ctx ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("Metrics stream closed by server")
				return nil
			}
			return errors.Wrap(err, "metrics stream read failed")
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var snapshot metrics.Snapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return errors.Wrap(err, "invalid metrics payload")
		}

		if err := handle(snapshot); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
