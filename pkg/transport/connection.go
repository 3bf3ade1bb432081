package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// callback executed when a message is received.
type MessageHandler func(ctx context.Context, connID uuid.UUID, msg []byte)

type OnCloseHandler func(connID uuid.UUID, err error)

type ConnectionConfig struct {
	ReadTimeout  time.Duration
	PingInterval time.Duration
	PingTimeout  time.Duration
}

// writeTimeout bounds a single frame write, including the drain writes that
// happen while the connection is closing.
const writeTimeout = 5 * time.Second

// Connection represents a single, thread-safe WebSocket connection.
type Connection struct {
	id     uuid.UUID
	conn   *websocket.Conn
	config ConnectionConfig
	send   chan []byte

	onMessage MessageHandler
	onClose   OnCloseHandler

	done      chan struct{}
	wg        *sync.WaitGroup
	ctx       context.Context
	closeOnce sync.Once
	cancel    context.CancelFunc

	mu       sync.Mutex
	closed   bool
	closeErr error
	started  bool

	logger *slog.Logger
}

func NewConnection(parentCtx context.Context, wg *sync.WaitGroup, conn *websocket.Conn, config ConnectionConfig, onMessage MessageHandler, onClose OnCloseHandler, logger *slog.Logger) *Connection {
	id := uuid.New()
	connCtx, cancel := context.WithCancel(parentCtx)
	connLogger := logger.With(slog.String("connID", id.String()))

	// Balanced by Done in finish. Counted at construction so a connection
	// that is closed before Run (a failed registration) stays balanced.
	wg.Add(1)

	return &Connection{
		id:        id,
		conn:      conn,
		logger:    connLogger,
		config:    config,
		onMessage: onMessage,
		send:      make(chan []byte, 256), // Buffered channel
		done:      make(chan struct{}),
		ctx:       connCtx,
		cancel:    cancel,
		onClose:   onClose,
		wg:        wg,
	}
}

func (c *Connection) Run() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	if c.config.PingInterval > 0 {
		go c.pingLoop()
	}

	c.logger.Info("connection established")
}

// readPump pumps messages from the WebSocket connection to the message handler.
func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.Close(readErr)
	}()

	for {
		readCtx, cancelRead := context.WithTimeout(c.ctx, c.config.ReadTimeout)
		typ, r, err := c.conn.Reader(readCtx)
		if err != nil {
			readErr = err
			cancelRead()
			return
		}
		// Ensure we are only handling text or binary messages.
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			cancelRead()
			continue
		}
		// Read the full message. Use io.ReadAll for safety.
		message, err := io.ReadAll(r)
		cancelRead()
		if err != nil {
			readErr = err
			return
		}
		if c.onMessage != nil {
			// Pass a connection-scoped context to the handler.
			c.onMessage(c.ctx, c.id, message)
		}
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// It owns the socket's final close: Close signals it only by closing the send
// channel, so every message queued before Close was called is still written
// out before the socket is torn down. Writes are detached from the connection
// context for the same reason, bounded by writeTimeout instead.
func (c *Connection) writePump() {
	var writeErr error
	for message := range c.send {
		writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(c.ctx), writeTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, message)
		cancelWrite()
		if err != nil {
			writeErr = err
			break
		}
	}
	c.Close(writeErr)

	c.mu.Lock()
	reason := c.closeErr
	c.mu.Unlock()
	c.finish(reason)
}

// pingLoop keeps the connection alive. A peer that misses the pong window is
// treated as disconnected and the connection is torn down.
func (c *Connection) pingLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	timeout := c.config.PingTimeout
	if timeout <= 0 {
		timeout = c.config.PingInterval
	}

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, timeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Warn("Connection missed ping window", slog.Any("error", err))
				c.Close(err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send queues a message for delivery. It is safe for concurrent use and never
// blocks: a client whose send buffer is full has the message dropped so that a
// slow consumer cannot stall emission to the rest of a room.
func (c *Connection) Send(message []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warn("Attempted to send on a closed connection")
		return
	}
	select {
	case c.send <- message:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.logger.Warn("Send buffer full, dropping message")
	}
}

// Close initiates connection shutdown. On a running connection the actual
// socket close and the close callback are deferred to writePump, which first
// drains the queued messages; callers that need the connection fully
// terminated wait on Done.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		status := websocket.CloseStatus(err)
		c.logger.Info("Transport connection closing", slog.Any("reason", err), slog.String("status", status.String()))

		c.mu.Lock()
		c.closed = true
		c.closeErr = err
		close(c.send)
		started := c.started
		c.mu.Unlock()

		c.cancel() // Signal readPump and pingLoop to stop.

		if !started {
			// No writePump to hand off to.
			c.finish(err)
		}
	})
}

// finish releases the connection's resources. Called exactly once: by
// writePump after the drain on a running connection, or by Close directly
// when Run was never called.
func (c *Connection) finish(err error) {
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
	if c.onClose != nil {
		c.onClose(c.id, err)
	}
	c.wg.Done()
	close(c.done)
}

// Done returns a channel that is closed when the connection is fully terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// ID returns the unique identifier of the connection.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

func (c *Connection) SetOnMessageHandler(handler MessageHandler) {
	c.onMessage = handler
}

func (c *Connection) SetOnCloseHandler(handler OnCloseHandler) {
	c.onClose = handler
}
