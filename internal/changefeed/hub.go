package changefeed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	TableCheckouts     = "checkouts"
	TableWithdrawals   = "withdrawals"
	TableLedgerEntries = "ledger_entries"
	TableAPIKeys       = "api_keys"
	TableNotifications = "notifications"
	TableUserSettings  = "user_settings"
	TableProfiles      = "profiles"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var ErrHubUnavailable = errors.New("hub_unavailable")
var ErrNoTables = errors.New("no_tables")
var ErrNoUser = errors.New("no_user")

// Change describes a committed row mutation. It carries identifiers only;
// subscribers re-read the row through the normal read paths.
type Change struct {
	Table  string    `json:"table"`
	Op     string    `json:"op"`
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

// Notifier is what services call after a successful commit.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

// Hub fans changes out to in-process subscribers, keeping a short backlog per
// table so a reconnecting stream can catch up.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
	nextID           atomic.Uint64
}

type stream struct {
	mu     sync.Mutex
	buffer []Change
	subs   map[uint64]subscriber
}

// subscriber with an empty userID receives every change on the table.
type subscriber struct {
	ch     chan Change
	userID string
}

func (s subscriber) wants(change Change) bool {
	return s.userID == "" || s.userID == change.UserID
}

type Subscription struct {
	hub    *Hub
	tables []string
	id     uint64
	ch     chan Change
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Notify(_ context.Context, change Change) {
	h.Publish(change)
}

// Publish never blocks: a subscriber whose buffer is full misses the change.
// Changes are only queued for subscribers that want them, so one user's
// burst cannot crowd out another user's stream.
func (h *Hub) Publish(change Change) {
	if h == nil {
		return
	}
	table := strings.TrimSpace(change.Table)
	if table == "" {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	s := h.ensureStream(table)
	s.mu.Lock()
	s.buffer = append(s.buffer, change)
	if len(s.buffer) > h.bufferSize {
		s.buffer = s.buffer[len(s.buffer)-h.bufferSize:]
	}
	subs := make([]chan Change, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.wants(change) {
			subs = append(subs, sub.ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Subscribe registers one channel on every requested table and returns the
// current backlog of those tables.
func (h *Hub) Subscribe(tables ...string) (*Subscription, []Change, error) {
	return h.subscribe("", tables)
}

// SubscribeUser is Subscribe restricted to changes owned by userID, for both
// the backlog and live delivery.
func (h *Hub) SubscribeUser(userID string, tables ...string) (*Subscription, []Change, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, ErrNoUser
	}
	return h.subscribe(userID, tables)
}

func (h *Hub) subscribe(userID string, tables []string) (*Subscription, []Change, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	names := normalizeTables(tables)
	if len(names) == 0 {
		return nil, nil, ErrNoTables
	}

	id := h.nextID.Add(1)
	sub := subscriber{ch: make(chan Change, h.subscriberBuffer), userID: userID}
	var backlog []Change
	for _, table := range names {
		s := h.ensureStream(table)
		s.mu.Lock()
		s.subs[id] = sub
		for _, change := range s.buffer {
			if sub.wants(change) {
				backlog = append(backlog, change)
			}
		}
		s.mu.Unlock()
	}

	return &Subscription{hub: h, tables: names, id: id, ch: sub.ch}, backlog, nil
}

func (h *Hub) ensureStream(table string) *stream {
	h.mu.RLock()
	current := h.streams[table]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[table]
	if current == nil {
		current = &stream{subs: make(map[uint64]subscriber)}
		h.streams[table] = current
	}
	return current
}

func (h *Hub) unsubscribe(tables []string, id uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, table := range tables {
		s := h.streams[table]
		if s == nil {
			continue
		}
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Subscription) Events() <-chan Change {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.tables, s.id)
	})
}

func normalizeTables(tables []string) []string {
	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, table := range tables {
		table = strings.TrimSpace(table)
		if table == "" {
			continue
		}
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		out = append(out, table)
	}
	return out
}
