package notify

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoSubscriber is returned when no surface with the label is subscribed
var ErrNoSubscriber = errors.New("no subscriber for label")

const (
	sendBuffer = 32
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // surfaces load from the local app origin
	},
}

type subscriber struct {
	id    string
	label string
	conn  *websocket.Conn
	send  chan []byte
}

// Hub fans events out to WebSocket subscribers. Each surface's UI connects
// with its own label; one label may have several connections.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	logger      *zap.Logger
	onChange    func(int)
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
	}
}

// OnSubscribersChanged registers a callback receiving the subscriber count
func (h *Hub) OnSubscribersChanged(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Handle upgrades the request and serves one subscriber until it disconnects
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request, label string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("label", label), zap.Error(err))
		return
	}

	sub := &subscriber{
		id:    uuid.New().String(),
		label: label,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
	}
	h.add(sub)
	h.logger.Debug("subscriber connected", zap.String("id", sub.id), zap.String("label", label))

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// Send delivers an event to every connection of one label
func (h *Hub) Send(label, event string, payload interface{}) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for _, sub := range h.subscribers {
		if sub.label != label {
			continue
		}
		h.enqueue(sub, frame)
		delivered = true
	}
	if !delivered {
		return errors.Wrapf(ErrNoSubscriber, "send %s to %s", event, label)
	}
	return nil
}

// Broadcast delivers an event to every connection
func (h *Hub) Broadcast(event string, payload interface{}) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		h.enqueue(sub, frame)
	}
	return nil
}

// Subscribers returns the number of live connections
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Labels returns the distinct subscribed labels, sorted
func (h *Hub) Labels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	var labels []string
	for _, sub := range h.subscribers {
		if !seen[sub.label] {
			seen[sub.label] = true
			labels = append(labels, sub.label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.send)
	}
}

// enqueue never blocks: a subscriber that cannot keep up loses the frame
func (h *Hub) enqueue(sub *subscriber, frame []byte) {
	select {
	case sub.send <- frame:
	default:
		h.logger.Warn("subscriber queue full, dropping event",
			zap.String("id", sub.id), zap.String("label", sub.label))
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub.id] = sub
	count, fn := len(h.subscribers), h.onChange
	h.mu.Unlock()

	if fn != nil {
		fn(count)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub.id]
	if ok {
		delete(h.subscribers, sub.id)
		close(sub.send)
	}
	count, fn := len(h.subscribers), h.onChange
	h.mu.Unlock()

	if ok && fn != nil {
		fn(count)
	}
}

func (h *Hub) readLoop(sub *subscriber) {
	defer func() {
		h.remove(sub)
		sub.conn.Close()
		h.logger.Debug("subscriber disconnected", zap.String("id", sub.id), zap.String("label", sub.label))
	}()

	sub.conn.SetReadLimit(4096)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribers only listen; inbound frames are drained to observe close
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", event)
	}
	return frame, nil
}
