package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"remidi/backend/internal/dto"
	"remidi/backend/pkg/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 来源已由 CORS 白名单与 token 校验约束
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler 通知实时推送
type WSHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

// NewWSHandler 创建 WSHandler
func NewWSHandler(hub *ws.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Connect 建立 WebSocket 连接，之后该用户的通知事件实时下发
// GET /api/v1/ws?token=xxx
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket 升级失败", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := ws.NewClient(userID, conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	go client.WritePump(h.logger)
	client.ReadPump()
}

// HubNotifier 将通知事件推送给在线连接
type HubNotifier struct {
	hub *ws.Hub
}

// NewHubNotifier 创建 HubNotifier
func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Notify 用户不在线时为空操作
func (n *HubNotifier) Notify(_ context.Context, event *dto.NotificationEvent) error {
	if event == nil {
		return nil
	}
	_, err := n.hub.SendJSON(event.UserID, event)
	return err
}
