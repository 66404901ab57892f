package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
)

// SharedID is the session every request maps to when isolation is off.
const SharedID = "shared"

// Session is one browser's dashboard state. Callers hold Lock for the whole
// of a recomputation pass so passes never overlap within a session.
type Session struct {
	ID        string
	Store     *dataset.Store
	CreatedAt time.Time

	mu sync.Mutex

	// Guarded by mu.
	Filter models.FilterState
	Ranges *models.ControlRanges
	// Synced is the store version Ranges and Filter were derived from.
	Synced uint64
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

type Config struct {
	Isolated bool
	TTL      time.Duration
	MaxSize  int
}

// Registry hands out sessions by ID, creating them on first use with the
// initial dataset. Idle sessions expire after the configured TTL.
type Registry struct {
	sessions *cache.LRUCache[*Session]
	initial  func() *models.Dataset
	isolated bool
	shared   *Session
	logger   *slog.Logger
}

func NewRegistry(cfg Config, initial func() *models.Dataset, logger *slog.Logger) *Registry {
	r := &Registry{
		sessions: cache.NewLRUCache[*Session](cfg.MaxSize, cfg.TTL),
		initial:  initial,
		isolated: cfg.Isolated,
		logger:   logger,
	}
	r.sessions.OnEvict(func(id string, _ *Session) {
		logger.Debug("session evicted", "session_id", id)
	})
	if !cfg.Isolated {
		r.shared = r.newSession(SharedID)
	}
	return r
}

// NewID returns a fresh random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the session for id, creating it if needed. With isolation off
// every id resolves to the shared session.
func (r *Registry) Get(id string) *Session {
	if !r.isolated {
		return r.shared
	}
	s, existed := r.sessions.GetOrCreate(id, func() *Session {
		return r.newSession(id)
	})
	if !existed {
		r.logger.Debug("session created", "session_id", id)
	}
	return s
}

func (r *Registry) Isolated() bool { return r.isolated }

// Len is the number of live sessions.
func (r *Registry) Len() int {
	if !r.isolated {
		return 1
	}
	return r.sessions.Size()
}

// CleanExpired lets a cache.Manager drop idle sessions.
func (r *Registry) CleanExpired() int {
	return r.sessions.CleanExpired()
}

func (r *Registry) newSession(id string) *Session {
	var ds *models.Dataset
	if r.initial != nil {
		ds = r.initial()
	}
	return &Session{
		ID:        id,
		Store:     dataset.NewStore(ds),
		CreatedAt: time.Now(),
	}
}
