package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/metrics"
)

const heartbeatInterval = 30 * time.Second

// Identity is what an accepted auth event binds to a connection.
type Identity struct {
	UserID   uint64
	Username string
}

// Hub is the registry of live connections. Every open socket is attached;
// only authenticated ones are reachable by user id, and each identity maps to
// at most one connection.
type Hub struct {
	clients map[uuid.UUID]*Client

	identities map[uuid.UUID]Identity

	userClients map[uint64]*Client

	mu sync.RWMutex

	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		identities:  make(map[uuid.UUID]Identity),
		userClients: make(map[uint64]*Client),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run sends an application-level ping to every open connection until Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			for _, client := range h.all() {
				_ = client.SendMessage(TypePing, nil)
			}
		}
	}
}

// Stop closes every connection's queue; the write pumps then close the sockets.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.identities = make(map[uuid.UUID]Identity)
	h.userClients = make(map[uint64]*Client)
	h.mu.Unlock()

	metrics.LiveConnections.Set(0)
	for _, client := range clients {
		client.setState(StateClosed)
		client.closeSend()
	}
}

// Attach records a freshly opened, not yet authenticated connection.
func (h *Hub) Attach(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	client.setState(StateOpen)
	h.log.Debug("connection_opened", zap.String("conn_id", client.ID.String()))
}

// Register binds an identity to client and marks it authenticated. A different
// connection already registered for the same user is displaced: it goes back
// to OPEN and is returned so the caller can tell it.
func (h *Hub) Register(client *Client, userID uint64, username string) (displaced *Client) {
	h.mu.Lock()
	if client.State() == StateClosed {
		h.mu.Unlock()
		return nil
	}

	h.clients[client.ID] = client
	if prev, ok := h.identities[client.ID]; ok && prev.UserID != userID {
		if h.userClients[prev.UserID] == client {
			delete(h.userClients, prev.UserID)
		}
	}
	if existing, ok := h.userClients[userID]; ok && existing != client {
		delete(h.identities, existing.ID)
		displaced = existing
	}
	h.identities[client.ID] = Identity{UserID: userID, Username: username}
	h.userClients[userID] = client
	client.setState(StateAuthenticated)
	if displaced != nil {
		displaced.setState(StateOpen)
	}
	online := len(h.userClients)
	h.mu.Unlock()

	metrics.LiveConnections.Set(float64(online))

	fields := []zap.Field{
		zap.String("conn_id", client.ID.String()),
		zap.Uint64("user_id", userID),
		zap.String("username", username),
	}
	if displaced != nil {
		fields = append(fields, zap.String("displaced_conn_id", displaced.ID.String()))
	}
	h.log.Info("client_registered", fields...)
	return displaced
}

// Unregister forgets client entirely. It is safe to call more than once and
// for connections that never authenticated.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client.ID]
	identity, authenticated := h.identities[client.ID]
	delete(h.clients, client.ID)
	delete(h.identities, client.ID)
	if authenticated && h.userClients[identity.UserID] == client {
		delete(h.userClients, identity.UserID)
	}
	client.setState(StateClosed)
	online := len(h.userClients)
	h.mu.Unlock()

	client.closeSend()

	if !known {
		return
	}
	metrics.LiveConnections.Set(float64(online))
	if authenticated {
		h.log.Info("client_unregistered",
			zap.String("conn_id", client.ID.String()),
			zap.Uint64("user_id", identity.UserID))
	} else {
		h.log.Debug("connection_closed", zap.String("conn_id", client.ID.String()))
	}
}

// FindConnectionsForUser returns the live connections of userID; empty when
// the user is offline.
func (h *Hub) FindConnectionsForUser(userID uint64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, ok := h.userClients[userID]; ok {
		return []*Client{client}
	}
	return nil
}

func (h *Hub) Identity(client *Client) (Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	identity, ok := h.identities[client.ID]
	return identity, ok
}

// Connections is a snapshot of all authenticated connections.
func (h *Hub) Connections() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.userClients))
	for _, client := range h.userClients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) all() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) IsOnline(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.userClients[userID]
	return ok
}

// OnlineUsers returns the ids of users with a live connection, ascending.
func (h *Hub) OnlineUsers() []uint64 {
	h.mu.RLock()
	users := make([]uint64, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Count returns open connections, authenticated or not.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
