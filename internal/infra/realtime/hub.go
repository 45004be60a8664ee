// Package realtime empurra eventos de lead para os quadros Kanban abertos via WebSocket.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
)

const (
	writeTimeout = 5 * time.Second
	// sendBuffer mensagens pendentes por quadro; acima disso o quadro é desconectado.
	sendBuffer = 32
)

type BoardMessage struct {
	Action     string             `json:"action"`
	LeadID     string             `json:"lead_id"`
	ActorID    string             `json:"actor_id,omitempty"`
	OldStatus  *entity.LeadStatus `json:"old_status,omitempty"`
	NewStatus  entity.LeadStatus  `json:"new_status,omitempty"`
	AssignedTo string             `json:"assigned_to,omitempty"`
	Lead       *entity.Lead       `json:"lead,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type client struct {
	conn *websocket.Conn
	send chan BoardMessage
}

type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*client]bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewHub aceita qualquer origem quando allowedOrigins está vazio.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 || allowed["*"] {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		clients: make(map[*client]bool),
		logger:  zap.L().With(zap.String("component", "realtime_hub")),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade já respondeu com o erro HTTP
		h.logger.Debug("upgrade para websocket falhou", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan BoardMessage, sendBuffer)}
	h.register(c)
	go h.writeLoop(c)

	// O quadro só escuta; a leitura serve para detectar o fechamento.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(c)
}

// writeLoop é o único escritor de dados na conexão.
func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Debug("removendo cliente websocket", zap.Error(err))
			h.unregister(c)
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked fecha send uma única vez; exige h.mu.
func (h *Hub) removeLocked(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify enfileira o evento para cada quadro sem esperar a escrita.
// Quadro com a fila cheia é desconectado.
func (h *Hub) Notify(ctx context.Context, event entity.LeadEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := BoardMessage{
		Action:     string(event.Type),
		LeadID:     event.LeadID,
		ActorID:    event.ActorID,
		OldStatus:  event.OldStatus,
		NewStatus:  event.NewStatus,
		AssignedTo: event.AssignedTo,
		Lead:       event.Lead,
		OccurredAt: event.OccurredAt,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("quadro lento, desconectando", zap.String("lead_id", event.LeadID))
			h.removeLocked(c)
			c.conn.Close()
		}
	}
	return nil
}

// Close derruba todas as conexões (shutdown).
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(time.Second))
		h.removeLocked(c)
		c.conn.Close()
	}
}
