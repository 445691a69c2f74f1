package interviewsession

import (
	"sync"
)

// Registry — процессный реестр сессий. Безопасен для одновременного
// доступа машины состояний, обработчика ответов и запросов результата.
type Registry interface {
	Create(sess *Session)
	Get(id string) (*Session, bool)
	Remove(id string)
	List() []*Session
}

func NewRegistry() Registry {
	return &registry{
		sessions: map[string]*Session{},
	}
}

type registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func (r *registry) Create(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
}

func (r *registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		list = append(list, sess)
	}
	return list
}
