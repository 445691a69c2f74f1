package connectionhub

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	wsmodels "visa-interview-backend/models/ws"
)

type Provider interface {
	AddClient(sessionID string, conn *websocket.Conn)
	DeleteClient(sessionID string)
	SendMessage(msg wsmodels.ServerMessage)
	SendClose(sessionID string)
	IsConnected(sessionID string) bool
}

var Instance Provider

func Init() {
	Instance = &impl{
		clients: map[string]clientSession{},
	}
}

type impl struct {
	mu      sync.RWMutex
	clients map[string]clientSession //map[sessionID]
}

func (i *impl) DeleteClient(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	sess, ok := i.clients[sessionID]
	if !ok {
		return
	}
	delete(i.clients, sessionID)
	sess.stop()
	close(sess.sendCh)
}

func (i *impl) AddClient(sessionID string, conn *websocket.Conn) {
	i.mu.Lock()
	defer i.mu.Unlock()
	oldSess, ok := i.clients[sessionID]
	if ok {
		oldSess.stop()
	}
	i.clients[sessionID] = newSession(conn)
}

// SendMessage отправляет событие подписчику сессии;
// события отключенным и медленным клиентам не накапливаются.
// Отправка под RLock исключает запись в закрытый канал.
func (i *impl) SendMessage(msg wsmodels.ServerMessage) {
	if msg.Time == "" {
		msg.Time = time.Now().Format("02.01.2006 15:04:05")
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	sess, ok := i.clients[msg.ToSessionID]
	if !ok {
		return
	}
	select {
	case sess.sendCh <- msg:
	default:
	}
}

func (i *impl) SendClose(sessionID string) {
	i.mu.RLock()
	sess, ok := i.clients[sessionID]
	i.mu.RUnlock()
	if ok {
		sess.stop()
	}
}

func (i *impl) IsConnected(sessionID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	sess, ok := i.clients[sessionID]
	if !ok || sess.conn == nil || sess.conn.Conn == nil {
		return false
	}
	return true
}
