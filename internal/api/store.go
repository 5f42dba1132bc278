package api

import (
	"net/http"
	"time"

	"UD_daily_rewards/internal/middleware"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/auth"
	"UD_daily_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errPaymentsDisabled = &service.Error{Kind: service.KindFailedPrecondition, Message: "payments are disabled"}

// VipPassInvoicer issues payment links for the VIP pass.
type VipPassInvoicer interface {
	CreateVipInvoiceLink() (string, error)
}

type storeRoutes struct {
	invoices VipPassInvoicer
	hub      *service.NotificationHub
}

// NewStoreRoutes registers the VIP pass endpoints. invoices may be nil
// when no bot is configured; notifications are still streamed.
func NewStoreRoutes(handler *gin.RouterGroup, a *auth.TelegramAuth, invoices VipPassInvoicer, hub *service.NotificationHub) {
	r := &storeRoutes{
		invoices: invoices,
		hub:      hub,
	}

	h := handler.Group("/store")
	h.Use(a.TelegramAuthMiddleware(), middleware.Caller())

	h.POST("/vip-pass", r.VipPassHandler)
	h.GET("/ws", r.handleWebSocket)
}

type InvoiceLinkResponse struct {
	Link string `json:"link"`
}

func (r *storeRoutes) VipPassHandler(c *gin.Context) {
	if r.invoices == nil {
		writeError(c, errPaymentsDisabled)
		return
	}

	link, err := r.invoices.CreateVipInvoiceLink()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, InvoiceLinkResponse{Link: link})
}

func (r *storeRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	caller := middleware.CallerFrom(c)
	if caller == nil {
		writeError(c, service.ErrUnauthenticated)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err), zap.Int64("telegram_id", caller.UserID))
		return
	}

	notifications, release := r.hub.Subscribe(caller.UserID)
	defer release()

	r.notificationsLoop(conn, caller.UserID, notifications)
}

// notificationsLoop writes hub messages to conn until the client goes
// away or the subscription is closed.
func (r *storeRoutes) notificationsLoop(conn *websocket.Conn, userID int64, notifications <-chan service.Message) {
	log := logger.Logger().With(zap.Int64("telegram_id", userID))
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case message, ok := <-notifications:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return
			}

			out, err := json.Marshal(message)
			if err != nil {
				log.Error("failed to marshal notification", zap.Error(err))
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				log.Info("failed to send notification", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
