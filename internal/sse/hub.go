package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client is one open event stream. Events are routed by supplier.
type Client struct {
	ID         string
	UserID     string
	SupplierID string
	Events     chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates a new SSE Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.Named("sse"),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("client registered",
		zap.String("client_id", client.ID),
		zap.String("supplier_id", client.SupplierID),
		zap.Int("total", len(h.clients)),
	)
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToSupplier 给某供应商的所有连接发送事件
func (h *Hub) SendToSupplier(supplierID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.SupplierID != supplierID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// SharingUpdate is the payload of a sharing_request_update event.
type SharingUpdate struct {
	RequestID            string `json:"request_id"`
	ProductID            string `json:"product_id"`
	RequestingSupplierID string `json:"requesting_supplier_id"`
	Status               string `json:"status"`
	Action               string `json:"action"`
}

// PublishSharingUpdate 共享申请状态变化，通知申请方和产品所属方
func (h *Hub) PublishSharingUpdate(ownerSupplierID string, u SharingUpdate) {
	data, err := json.Marshal(u)
	if err != nil {
		h.logger.Error("marshal sharing update", zap.Error(err))
		return
	}
	event := Event{EventType: "sharing_request_update", Data: string(data)}
	h.SendToSupplier(u.RequestingSupplierID, event)
	if ownerSupplierID != u.RequestingSupplierID {
		h.SendToSupplier(ownerSupplierID, event)
	}
	h.logger.Info("published sharing_request_update",
		zap.String("request_id", u.RequestID),
		zap.String("product_id", u.ProductID),
		zap.String("status", u.Status),
		zap.String("action", u.Action),
	)
}
