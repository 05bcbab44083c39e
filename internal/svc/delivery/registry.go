package delivery

import (
	"sync"
)

// registry is the per-process binding between live connection handles and the
// users they represent. Disconnect signals carry no payload, so this is the
// only way to answer "which user just dropped". Forward and reverse indexes
// are kept so a rebind can orphan the previous handle in O(1).
type registry struct {
	mtx   sync.RWMutex
	users map[string]string // conn -> user
	conns map[string]string // user -> latest conn
}

func newRegistry() *registry {
	return &registry{
		users: map[string]string{},
		conns: map[string]string{},
	}
}

// Bind records conn as the user's latest connection. Any previous handle for
// the same user is unbound; its eventual disconnect then resolves to nothing.
func (r *registry) Bind(conn string, userID string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if old, ok := r.conns[userID]; ok && old != conn {
		delete(r.users, old)
	}

	r.users[conn] = userID
	r.conns[userID] = conn
}

func (r *registry) Resolve(conn string) (string, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	userID, ok := r.users[conn]

	return userID, ok
}

func (r *registry) Unbind(conn string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	userID, ok := r.users[conn]
	if !ok {
		return
	}

	delete(r.users, conn)

	if r.conns[userID] == conn {
		delete(r.conns, userID)
	}
}

func (r *registry) Size() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return len(r.users)
}
