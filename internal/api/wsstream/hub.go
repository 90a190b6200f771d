// Package wsstream streams backtest job progress to connected browser
// clients over a websocket, so a dashboard can watch a long-running
// backtest without polling.
package wsstream

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// ProgressMessage reports how far a job has gotten.
type ProgressMessage struct {
	Type            string `json:"type"`
	JobID           string `json:"job_id"`
	SnapshotsDone   int64  `json:"snapshots_done"`
	SnapshotsTotal  int64  `json:"snapshots_total"`
	OpenPositions   int    `json:"open_positions"`
	TradesClosed    int    `json:"trades_closed"`
}

// JobDoneMessage announces a job's terminal state.
type JobDoneMessage struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Hub fans broadcast messages out to every connected client. One Hub
// serves every job; clients filter by job_id client-side, the way the
// original dashboard filtered by pair_id.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *zap.Logger
}

// NewHub returns a Hub. Call Run before serving connections.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run is the hub's event loop. It returns nil once ctx is cancelled,
// after closing every connected client's send channel so the
// goroutines serving those connections unwind on their own.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast serializes message and queues it for every connected client.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.log.Error("marshaling broadcast message", zap.Error(err))
		jsonBufferPool.Put(buf)
		return
	}

	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// BroadcastProgress sends a ProgressMessage.
func (h *Hub) BroadcastProgress(m ProgressMessage) {
	m.Type = "progress"
	h.Broadcast(m)
}

// BroadcastJobDone sends a JobDoneMessage.
func (h *Hub) BroadcastJobDone(m JobDoneMessage) {
	m.Type = "job_done"
	h.Broadcast(m)
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
