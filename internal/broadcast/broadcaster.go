package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/viewer"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// client is one page connection. host is the page's domain, used as the twitch embed parent.
type client struct {
	writer *clientWriter
	host   string
}

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	host         string
	replyChannel chan registerReply
}

type registerReply struct {
	id  uuid.UUID
	err error
}

type unregisterCmd struct {
	baseHubCmd
	id uuid.UUID
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub fans rendered view state out to every connected page.
type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	clients    map[uuid.UUID]*client
	maxClients int
	metrics    *metrics.WebSocketMetrics
	done       chan struct{}

	// pending holds the newest unpublished snapshot; notify wakes the loop.
	pendingMu sync.Mutex
	pending   *domain.Snapshot
	latest    *domain.Snapshot
	notify    chan struct{}
}

// NewHub creates and starts a hub. maxClients bounds concurrent connections. wsMetrics may be nil.
func NewHub(clock clockwork.Clock, maxClients int, wsMetrics *metrics.WebSocketMetrics) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clock:      clock,
		clients:    make(map[uuid.UUID]*client),
		maxClients: maxClients,
		metrics:    wsMetrics,
		done:       make(chan struct{}),
		notify:     make(chan struct{}, 1),
	}
	go h.run()
	return h
}

// Publish records snap as the newest state. It never blocks.
func (h *Hub) Publish(snap domain.Snapshot) {
	h.pendingMu.Lock()
	h.pending = &snap
	h.pendingMu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Register adds a connection and immediately sends it the latest state rendered for host.
// The connection is closed and an error returned when the hub is full.
func (h *Hub) Register(conn *websocket.Conn, host string) (uuid.UUID, error) {
	replyCh := make(chan registerReply, 1)
	h.cmdCh <- registerCmd{connection: conn, host: host, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.id, reply.err
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Unknown ids are ignored.
func (h *Hub) Unregister(id uuid.UUID) {
	select {
	case h.cmdCh <- unregisterCmd{id: id}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected pages, or -1 if the command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every connection and waits for the hub goroutine to exit.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAll("hub panic")
		}
	}()

	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c.id)
			case clientCountCmd:
				c.replyChannel <- len(h.clients)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-h.notify:
			h.handlePublish()
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", h.maxClients)
		_ = c.connection.Close()
		c.replyChannel <- registerReply{err: fmt.Errorf("max clients (%d) reached", h.maxClients)}
		return
	}

	id := uuid.New()
	cl := &client{writer: newClientWriter(c.connection, h.clock), host: c.host}
	h.clients[id] = cl
	h.observe()

	if h.latest != nil {
		h.send(id, cl, *h.latest)
	}

	slog.Debug("Client registered", "client_id", id.String(), "host", c.host, "total_clients", len(h.clients))
	c.replyChannel <- registerReply{id: id}
}

func (h *Hub) handleUnregister(id uuid.UUID) {
	cl, ok := h.clients[id]
	if !ok {
		return
	}

	cl.writer.stop()
	delete(h.clients, id)
	h.observe()
	slog.Debug("Client unregistered", "client_id", id.String(), "remaining_clients", len(h.clients))
}

func (h *Hub) handlePublish() {
	h.pendingMu.Lock()
	snap := h.pending
	h.pending = nil
	h.pendingMu.Unlock()

	if snap == nil {
		return
	}
	h.latest = snap

	for id, cl := range h.clients {
		h.send(id, cl, *snap)
	}
}

// send renders snap for the client's host and queues it. Clients whose buffer is full are dropped.
func (h *Hub) send(id uuid.UUID, cl *client, snap domain.Snapshot) {
	data, err := json.Marshal(viewer.Render(snap, cl.host))
	if err != nil {
		slog.Error("Failed to marshal view state", "error", err)
		return
	}

	select {
	case cl.writer.sendChannel <- data:
		if h.metrics != nil {
			h.metrics.MessagesPublished.Inc()
		}
	default:
		slog.Warn("Disconnecting slow client", "client_id", id.String())
		if h.metrics != nil {
			h.metrics.SlowClients.Inc()
		}
		h.handleUnregister(id)
	}
}

func (h *Hub) handleStop() {
	total := len(h.clients)
	slog.Info("Hub shutting down", "total_clients", total)
	h.closeAll("Server shutting down")
	slog.Info("Hub shutdown complete", "disconnected_clients", total)
}

func (h *Hub) closeAll(reason string) {
	for id, cl := range h.clients {
		cl.writer.stopGraceful(reason)
		delete(h.clients, id)
	}
	h.observe()
}

func (h *Hub) observe() {
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	}
}
