package app

import (
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// Registry holds live sessions and in-flight username reservations.
// It is not safe for concurrent use; the Coordinator serializes access.
type Registry struct {
	sessions map[core.ConnID]*domain.User
	order    []core.ConnID
	reserved map[core.ConnID]string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnID]*domain.User),
		reserved: make(map[core.ConnID]string),
	}
}

func (r *Registry) Bind(conn core.ConnID, user *domain.User) {
	if _, ok := r.sessions[conn]; !ok {
		r.order = append(r.order, conn)
	}
	r.sessions[conn] = user
}

func (r *Registry) Unbind(conn core.ConnID) (*domain.User, bool) {
	u, ok := r.sessions[conn]
	if !ok {
		return nil, false
	}
	delete(r.sessions, conn)
	for i, c := range r.order {
		if c == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return u, true
}

func (r *Registry) UserOf(conn core.ConnID) (*domain.User, bool) {
	u, ok := r.sessions[conn]
	return u, ok
}

// NameInUse reports whether a live session or a pending registration holds name.
func (r *Registry) NameInUse(name string) bool {
	for _, u := range r.sessions {
		if u.Username == name {
			return true
		}
	}
	for _, n := range r.reserved {
		if n == name {
			return true
		}
	}
	return false
}

func (r *Registry) Reserve(conn core.ConnID, name string) {
	r.reserved[conn] = name
}

func (r *Registry) HasReservation(conn core.ConnID) bool {
	_, ok := r.reserved[conn]
	return ok
}

// Release drops the reservation and reports whether conn still held name.
func (r *Registry) Release(conn core.ConnID, name string) bool {
	n, ok := r.reserved[conn]
	if !ok {
		return false
	}
	delete(r.reserved, conn)
	return n == name
}

func (r *Registry) DropReservation(conn core.ConnID) {
	delete(r.reserved, conn)
}

// Usernames returns the presence set in registration order.
func (r *Registry) Usernames() []string {
	out := make([]string, 0, len(r.order))
	for _, conn := range r.order {
		out = append(out, r.sessions[conn].Username)
	}
	return out
}

func (r *Registry) Users() []domain.User {
	out := make([]domain.User, 0, len(r.order))
	for _, conn := range r.order {
		out = append(out, *r.sessions[conn])
	}
	return out
}

func (r *Registry) Len() int { return len(r.sessions) }
