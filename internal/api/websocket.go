// internal/api/websocket.go
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

// StatusClient 表示一个订阅生成状态的 WebSocket 客户端连接
type StatusClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closed    int32 // 原子操作标志，0=开启，1=关闭
	createdAt time.Time
}

// StatusHub 管理所有状态订阅连接
// 只推送瞬时状态指示（generating/success/failure），不承载任何数据结果
type StatusHub struct {
	clients map[*StatusClient]bool
	mutex   sync.RWMutex
}

// 全局状态推送器
var statusHub = &StatusHub{
	clients: make(map[*StatusClient]bool),
}

// Close 安全关闭客户端连接
func (client *StatusClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *StatusClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// sendMessage 安全发送消息到客户端，队列满时丢弃而不阻塞
func (client *StatusClient) sendMessage(message map[string]interface{}) {
	if client.IsClosed() {
		return
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}

	select {
	case client.send <- msgBytes:
	default:
		log.Printf("⚠️ 状态消息队列已满，消息被丢弃")
	}
}

// register 注册一个新客户端
func (hub *StatusHub) register(client *StatusClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[client] = true
}

// unregister 移除一个客户端
func (hub *StatusHub) unregister(client *StatusClient) {
	hub.mutex.Lock()
	delete(hub.clients, client)
	hub.mutex.Unlock()

	client.Close()

	// 唤醒可能阻塞在send上的写循环
	select {
	case client.send <- nil:
	default:
	}
}

// Broadcast 向所有已连接客户端推送一条状态消息
func (hub *StatusHub) Broadcast(status string, detail string) {
	message := map[string]interface{}{
		"type":      "status",
		"status":    status,
		"detail":    detail,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	for client := range hub.clients {
		client.sendMessage(message)
	}
}

// GetStatus 返回连接统计（调试用）
func (hub *StatusHub) GetStatus() map[string]interface{} {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return map[string]interface{}{
		"connections": len(hub.clients),
	}
}

// StatusWebSocket 处理状态订阅 WebSocket 连接
func (h *Handler) StatusWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	client := &StatusClient{
		conn:      conn,
		send:      make(chan []byte, 16),
		createdAt: time.Now(),
	}

	statusHub.register(client)

	// 写循环
	// send通道从不close，客户端关闭后残留消息直接丢弃
	go func() {
		defer statusHub.unregister(client)

		for msg := range client.send {
			if msg == nil || client.IsClosed() {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// 读循环只用于感知客户端断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				statusHub.unregister(client)
				return
			}
		}
	}()
}

// GetWebSocketStatus 获取 WebSocket 连接状态（调试用）
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	status := statusHub.GetStatus()
	status["timestamp"] = time.Now().Format(time.RFC3339)

	c.JSON(http.StatusOK, status)
}
