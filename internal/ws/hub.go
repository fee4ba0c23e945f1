package ws

import (
	"sync"
	"sync/atomic"

	"github.com/d60-Lab/chat-gateway/internal/metrics"
)

// Hub 管理会话级别的广播组，按会话 ID 懒加载并发安全。
type Hub struct {
	mu     sync.RWMutex
	groups map[uint]*Group
}

func NewHub() *Hub { return &Hub{groups: make(map[uint]*Group)} }

// Get 返回会话对应的广播组，未初始化则创建并启动其事件循环。
func (h *Hub) Get(conversationID uint) *Group {
	h.mu.RLock()
	g := h.groups[conversationID]
	h.mu.RUnlock()
	if g != nil {
		return g
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	g = h.groups[conversationID]
	if g != nil {
		return g
	}
	g = NewGroup(conversationID)
	h.groups[conversationID] = g
	go g.run()
	return g
}

// Publish 把一条事件投递给会话组的全部订阅者；无人订阅时直接丢弃。
func (h *Hub) Publish(conversationID uint, payload []byte) {
	h.mu.RLock()
	g := h.groups[conversationID]
	h.mu.RUnlock()
	if g == nil {
		return
	}
	g.broadcast <- payload
}

func (h *Hub) Online(conversationID uint) int {
	h.mu.RLock()
	g := h.groups[conversationID]
	h.mu.RUnlock()
	if g == nil {
		return 0
	}
	return g.Online()
}

// Group 单个会话的广播组。注册、注销与广播都经由同一个事件循环，
// 保证组内事件按发布顺序投递（FIFO），且迭代期间无并发增删。
type Group struct {
	conversationID uint
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	broadcast      chan []byte
	online         int32
}

func NewGroup(conversationID uint) *Group {
	return &Group{
		conversationID: conversationID,
		clients:        make(map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan []byte, 256),
	}
}

func (g *Group) run() {
	for {
		select {
		case c := <-g.register:
			g.clients[c] = true
			atomic.StoreInt32(&g.online, int32(len(g.clients)))
			metrics.WsConnections.Inc()
		case c := <-g.unregister:
			// 幂等：未注册或已注销的客户端直接跳过
			if _, ok := g.clients[c]; ok {
				delete(g.clients, c)
				close(c.send)
				atomic.StoreInt32(&g.online, int32(len(g.clients)))
				metrics.WsConnections.Dec()
			}
		case payload := <-g.broadcast:
			for c := range g.clients {
				select {
				case c.send <- payload:
				default:
					// 发送缓冲打满视为掉线，静默剔除
					close(c.send)
					delete(g.clients, c)
					atomic.StoreInt32(&g.online, int32(len(g.clients)))
					metrics.WsConnections.Dec()
				}
			}
		}
	}
}

// Online 返回组内在线客户端数量。
func (g *Group) Online() int { return int(atomic.LoadInt32(&g.online)) }
