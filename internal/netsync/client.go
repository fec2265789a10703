package netsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/logger"
)

// Client is a participant's connection to a host relay. Received events
// are ingested into the participant's local queue.
type Client struct {
	Welcome Welcome

	conn    *websocket.Conn
	queue   *events.Queue
	writeMu sync.Mutex
}

// Dial connects to the relay at url and waits for the welcome frame.
func Dial(ctx context.Context, url string, queue *events.Queue) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read welcome: %w", err)
	}
	if m.Type != TypeWelcome || m.Welcome == nil {
		conn.Close()
		return nil, fmt.Errorf("expected welcome, got %q", m.Type)
	}

	return &Client{Welcome: *m.Welcome, conn: conn, queue: queue}, nil
}

// Run ingests events until ctx is cancelled or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("relay connection lost: %w", err)
		}
		switch m.Type {
		case TypeEvents:
			for _, e := range m.Events {
				c.queue.Ingest(e)
			}
		case TypeError:
			logger.Warning("host rejected action", "error", m.Error)
		}
	}
}

// Send reports a player action to the host.
func (c *Client) Send(a Action) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(a)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
