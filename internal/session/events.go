package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stellarsaas/stellar/internal/shared"
)

const heartbeatInterval = 15 * time.Second

// Event announces that a session's stored state changed.
type Event struct {
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
}

// Notifier fans session changes out to every tab sharing the cookie session.
type Notifier struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewNotifier constructs a Redis pub/sub notifier.
func NewNotifier(client *redis.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger, now: time.Now}
}

// Channel returns the pub/sub channel for a session.
func Channel(sessionID string) string {
	return "stellar:session-events:" + sessionID
}

// Publish satisfies shared.ChangeHook. Publishing failures are logged only.
func (n *Notifier) Publish(ctx context.Context, sessionID string, topics []string) {
	if n == nil || n.client == nil || sessionID == "" {
		return
	}
	for _, topic := range topics {
		payload, err := json.Marshal(Event{Topic: topic, At: n.now().UTC()})
		if err != nil {
			continue
		}
		if err := n.client.Publish(ctx, Channel(sessionID), payload).Err(); err != nil {
			n.logger.Warn("publish session event", slog.String("topic", topic), slog.Any("error", err))
		}
	}
}

// EventsHandler streams session change events as Server-Sent Events.
type EventsHandler struct {
	client *redis.Client
	logger *slog.Logger
}

// NewEventsHandler constructs the SSE endpoint handler.
func NewEventsHandler(client *redis.Client, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{client: client, logger: logger}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusNotImplemented)
		return
	}

	ctx := r.Context()
	pubsub := h.client.Subscribe(ctx, Channel(sess.ID))
	defer func() { _ = pubsub.Close() }()
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn("subscribe session events", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	// The stream outlives http.Server.WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("clear stream write deadline", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := newEventStream(w, flusher)
	if err := stream.comment("connected"); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := stream.comment("ping"); err != nil {
				return
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := stream.send("session", msg.Payload); err != nil {
				h.logger.Debug("session event stream closed", slog.Any("error", err))
				return
			}
		}
	}
}

type eventStream struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	closed  bool
}

func newEventStream(w io.Writer, f http.Flusher) *eventStream {
	return &eventStream{writer: w, flusher: f}
}

func (s *eventStream) send(event, data string) error {
	return s.write(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
}

func (s *eventStream) comment(text string) error {
	return s.write(fmt.Sprintf(": %s\n\n", text))
}

func (s *eventStream) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.EOF
	}
	if _, err := io.WriteString(s.writer, frame); err != nil {
		s.closed = true
		return err
	}
	s.flusher.Flush()
	return nil
}
