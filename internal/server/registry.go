// Package server tracks which user is bound to which live connection via the
// Registry type.
package server

import (
	"sort"
	"sync"
)

// ConnectionEntry binds a user identity to the connection it registered on.
type ConnectionEntry struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type registryEntry struct {
	ConnectionEntry
	seq uint64
}

// Registry maps user identities to their single active connection.
// Writes are serialized by the hub loop and guarded by mu so that HTTP
// readers never observe a half-applied mutation.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]registryEntry
	byConn map[string]string
	seq    uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]registryEntry),
		byConn: make(map[string]string),
	}
}

// Register binds userID to connectionID. A previous connection of the same user
// is replaced, and a previous identity of the same connection is dropped, so both
// sides of the mapping stay unique.
func (r *Registry) Register(userID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.byConn[connectionID]; ok {
		delete(r.byUser, prevUser)
	}
	if prev, ok := r.byUser[userID]; ok {
		delete(r.byConn, prev.ConnectionID)
	}

	r.seq++
	r.byUser[userID] = registryEntry{
		ConnectionEntry: ConnectionEntry{UserID: userID, ConnectionID: connectionID},
		seq:             r.seq,
	}
	r.byConn[connectionID] = userID
}

// Remove deletes the entry owned by connectionID and reports whether one existed.
func (r *Registry) Remove(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return false
	}
	delete(r.byConn, connectionID)
	delete(r.byUser, userID)
	return true
}

// Lookup returns the connection currently bound to userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byUser[userID]
	return entry.ConnectionID, ok
}

// UserOf returns the identity bound to connectionID, if any.
func (r *Registry) UserOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[connectionID]
	return userID, ok
}

// Snapshot returns a copy of the live entries in registration order.
func (r *Registry) Snapshot() []ConnectionEntry {
	r.mu.RLock()
	entries := make([]registryEntry, 0, len(r.byUser))
	for _, e := range r.byUser {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]ConnectionEntry, len(entries))
	for i, e := range entries {
		out[i] = e.ConnectionEntry
	}
	return out
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
