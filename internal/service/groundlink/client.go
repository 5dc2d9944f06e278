package groundlink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"heliowatch/internal/domain/models"
	drepo "heliowatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a TelemetryStream backed by the ground-station relay
// WebSocket. One subscription per instrument channel.
type Client struct {
	apiKey         string
	websocketURL   string
	instruments    []models.Instrument
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a TelemetryStream for the given instrument channels.
func New(apiKey, websocketURL string, instruments []models.Instrument, reconnectDelay, pingInterval time.Duration) drepo.TelemetryStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		instruments:    instruments,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect dials the relay.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("groundlink connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("groundlink: connected")
	return nil
}

// Subscribe registers interest in each instrument channel.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("groundlink not connected")
	}
	for _, ins := range c.instruments {
		msg := map[string]string{"type": "subscribe", "instrument": string(ins)}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", ins, err)
		}
		log.Printf("groundlink: subscribed %s", ins)
	}
	return nil
}

type glReading struct {
	I string  `json:"i"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms since epoch
}

type glFrame struct {
	Type string      `json:"type"`
	Data []glReading `json:"data"`
}

// Read streams readings and errors. The reading channel closes when the
// context is done or the connection drops.
func (c *Client) Read(ctx context.Context) (<-chan *models.InstrumentReading, <-chan error) {
	readings := make(chan *models.InstrumentReading, 1024)
	errs := make(chan error, 1)

	// ping loop keeps the relay from idling the connection out
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(readings)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if c.conn == nil {
				errs <- fmt.Errorf("groundlink conn nil")
				return
			}
			_, b, err := c.conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("groundlink read: %w", err)
				return
			}

			var frame glFrame
			if err := json.Unmarshal(b, &frame); err != nil {
				// ignore non-JSON control frames
				continue
			}
			if frame.Type != "reading" {
				continue
			}
			for _, d := range frame.Data {
				ins := models.Instrument(d.I)
				if !models.IsValidInstrument(ins) {
					continue
				}
				r := &models.InstrumentReading{
					Instrument: ins,
					Value:      d.V,
					Timestamp:  time.UnixMilli(d.T).UTC(),
				}
				select {
				case readings <- r:
				default:
					// drop on backpressure, the pipeline smooths bursts
				}
			}
		}
	}()

	return readings, errs
}

// Reconnect closes the current connection, waits out the backoff delay,
// then dials and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports connection status.
func (c *Client) IsConnected() bool { return c.connected }
