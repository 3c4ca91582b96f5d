package game

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry maps connection identity and room identity to live sessions. It
// is owned by the hub and injected where needed; there is no ambient global
// session table.
type Registry struct {
	mu     sync.RWMutex
	byRoom map[uuid.UUID]*Session
	byConn map[uuid.UUID]uuid.UUID
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byRoom: make(map[uuid.UUID]*Session),
		byConn: make(map[uuid.UUID]uuid.UUID),
		logger: logger,
	}
}

// CreateSession builds a session from the given config and indexes both
// player connections.
func (r *Registry) CreateSession(cfg Config) *Session {
	if cfg.RoomID == uuid.Nil {
		cfg.RoomID = uuid.New()
	}

	session := NewSession(cfg, r.logger)

	r.mu.Lock()
	r.byRoom[cfg.RoomID] = session
	r.byConn[cfg.White.ConnectionID] = cfg.RoomID
	r.byConn[cfg.Black.ConnectionID] = cfg.RoomID
	r.mu.Unlock()

	r.logger.Info("session created",
		zap.String("room_id", cfg.RoomID.String()),
		zap.String("white", cfg.White.UserID),
		zap.String("black", cfg.Black.UserID))

	return session
}

// Bind associates a connection with an existing room. Rebinding the same
// connection is idempotent.
func (r *Registry) Bind(connID, roomID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byRoom[roomID]; !ok {
		return ErrNoSuchSession
	}
	r.byConn[connID] = roomID
	return nil
}

// Lookup resolves the session a connection is bound to.
func (r *Registry) Lookup(connID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	session, ok := r.byRoom[roomID]
	return session, ok
}

// LookupByRoom resolves a session by room identity.
func (r *Registry) LookupByRoom(roomID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byRoom[roomID]
	return session, ok
}

// Release tears down a room and every connection binding pointing at it.
// Releasing an unknown room is a no-op.
func (r *Registry) Release(roomID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byRoom[roomID]; !ok {
		return
	}
	delete(r.byRoom, roomID)
	for connID, bound := range r.byConn {
		if bound == roomID {
			delete(r.byConn, connID)
		}
	}

	r.logger.Info("session released", zap.String("room_id", roomID.String()))
}

// Unbind removes a single connection binding, leaving the session in place.
func (r *Registry) Unbind(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byConn, connID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom)
}
