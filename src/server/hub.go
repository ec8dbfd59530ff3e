package server

import (
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/helpers"
	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
//
// One goroutine owns the client set. Everything that touches it (register,
// resubscribe, unregister, broadcast, direct sends, heartbeat) is an op on a
// single ordered inbox, so a client sees events in the order they were
// published and a snapshot always precedes the events that follow it.
// -----------------------------------------------------------------------------

type opKind int

const (
	opRegister opKind = iota
	opResubscribe
	opUnregister
	opBroadcast
	opDirect
)

type hubOp struct {
	kind   opKind
	client *Client
	sub    Subscription
	event  *models.MOutbound
}

// maxMissedBeats is how many heartbeats may go unanswered before eviction.
const maxMissedBeats = 2

// HubOptions tunes buffers and timers.
type HubOptions struct {
	SendBuffer          int
	InboxBuffer         int
	Heartbeat           time.Duration
	WriteTimeout        time.Duration
	MaxMessageBytes     int64
	DefaultHistoryLimit int
}

// HubOptionsFromConfig converts the hub section of the config.
func HubOptionsFromConfig(cfg models.MHubConfig, defaultHistoryLimit int) HubOptions {
	return HubOptions{
		SendBuffer:          cfg.SendBuffer,
		InboxBuffer:         cfg.InboxBuffer,
		Heartbeat:           time.Duration(cfg.HeartbeatIntervalSeconds) * time.Second,
		WriteTimeout:        time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxMessageBytes:     int64(cfg.MaxMessageBytes),
		DefaultHistoryLimit: defaultHistoryLimit,
	}
}

// -----------------------------------------------------------------------------

type Hub struct {
	market  interfaces.IMarketView
	opts    HubOptions
	inbox   chan hubOp
	clients map[*Client]Subscription // owned by Run

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	connections atomic.Int64
	delivered   atomic.Int64
	dropped     atomic.Int64
	evicted     atomic.Int64

	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHub(market interfaces.IMarketView, opts HubOptions, l *logger.Logger) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.InboxBuffer <= 0 {
		opts.InboxBuffer = 4096
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 1024 * 1024
	}
	if opts.DefaultHistoryLimit <= 0 {
		opts.DefaultHistoryLimit = 300
	}
	if l == nil {
		l = logger.NewNopLogger()
	}

	return &Hub{
		market:  market,
		opts:    opts,
		inbox:   make(chan hubOp, opts.InboxBuffer),
		clients: make(map[*Client]Subscription),
		done:    make(chan struct{}),
		Logger:  l,
	}
}

// -----------------------------------------------------------------------------

// Start launches the hub loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop ends the loop and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

// -----------------------------------------------------------------------------

func (h *Hub) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case op := <-h.inbox:
			h.handle(op)

		case <-ticker.C:
			h.heartbeat()

		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.connections.Store(0)
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) handle(op hubOp) {
	switch op.kind {
	case opRegister:
		h.clients[op.client] = op.sub
		h.connections.Store(int64(len(h.clients)))
		h.deliver(op.client, op.event)

	case opResubscribe:
		if _, ok := h.clients[op.client]; !ok {
			return
		}
		h.clients[op.client] = op.sub
		h.deliver(op.client, op.event)

	case opUnregister:
		if _, ok := h.clients[op.client]; ok {
			delete(h.clients, op.client)
			close(op.client.send)
			h.connections.Store(int64(len(h.clients)))
		}

	case opDirect:
		if _, ok := h.clients[op.client]; ok {
			h.deliver(op.client, op.event)
		}

	case opBroadcast:
		for client, sub := range h.clients {
			if op.event.Routable() && !sub.Matches(op.event.Symbol) {
				continue
			}
			h.deliver(client, op.event)
		}
	}
}

// -----------------------------------------------------------------------------

// deliver pushes without blocking. A full buffer evicts the client; other
// clients and the publisher are unaffected.
func (h *Hub) deliver(client *Client, event *models.MOutbound) {
	select {
	case client.send <- event:
		h.delivered.Add(1)
	default:
		h.dropped.Add(1)
		h.evict(client, helpers.NewDeliveryFailure(client.ID, errSendBufferFull))
	}
}

func (h *Hub) evict(client *Client, cause error) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.evicted.Add(1)
	h.connections.Store(int64(len(h.clients)))
	h.Logger.Warning("Evicting client %s: %v", client.ID, cause)
}

// -----------------------------------------------------------------------------

func (h *Hub) heartbeat() {
	for client := range h.clients {
		if client.missedBeats.Load() >= maxMissedBeats {
			h.evict(client, helpers.NewDeliveryFailure(client.ID, errHeartbeatMissed))
			continue
		}
		client.missedBeats.Add(1)
		select {
		case client.ping <- struct{}{}:
		default:
		}
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) enqueue(op hubOp) {
	select {
	case h.inbox <- op:
	case <-h.done:
	}
}

// Publish implements interfaces.IEventSink. The hub loop never blocks, so a
// full inbox only delays the publisher until the loop catches up.
func (h *Hub) Publish(event *models.MOutbound) {
	h.enqueue(hubOp{kind: opBroadcast, event: event})
}

// Attach registers a client and queues its initial snapshot.
func (h *Hub) Attach(client *Client, sub Subscription) {
	h.market.Attach(sub, func(snapshot *models.MOutbound) {
		h.enqueue(hubOp{kind: opRegister, client: client, sub: sub, event: snapshot})
	})
}

// Resubscribe swaps a client's interest set and queues a fresh snapshot.
func (h *Hub) Resubscribe(client *Client, sub Subscription) {
	h.market.Attach(sub, func(snapshot *models.MOutbound) {
		h.enqueue(hubOp{kind: opResubscribe, client: client, sub: sub, event: snapshot})
	})
}

// Detach removes a client. Safe to call after eviction or Stop.
func (h *Hub) Detach(client *Client) {
	h.enqueue(hubOp{kind: opUnregister, client: client})
}

// SendHistory queues one series for client, ordered against broadcasts the
// same way a snapshot is.
func (h *Hub) SendHistory(client *Client, symbol, tf string, limit int) error {
	return h.market.History(symbol, tf, limit, func(history *models.MOutbound) {
		h.enqueue(hubOp{kind: opDirect, client: client, event: history})
	})
}

// SendTo queues an event for one client only.
func (h *Hub) SendTo(client *Client, event *models.MOutbound) {
	h.enqueue(hubOp{kind: opDirect, client: client, event: event})
}

// -----------------------------------------------------------------------------

// Metrics returns delivery counters.
func (h *Hub) Metrics() models.MHubMetrics {
	return models.MHubMetrics{
		Connections: int(h.connections.Load()),
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
		Evicted:     h.evicted.Load(),
	}
}
