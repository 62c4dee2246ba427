package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

const (
	WebSocketServerPingInterval = 25 * time.Second
	WebSocketServerPingWait     = 40 * time.Second

	// message types, framed as "Type|payload"
	// 消息类型，格式为 "Type|payload"
	MessageAuthorization = "Authorization"
	MessageNotice        = "Notice"
)

type WebSocketMessage struct {
	Type string `json:"type"`
	Data []byte `json:"data"`
}

type WebsocketServerConfig struct {
	GWSOption gws.ServerOption
	PingWait  time.Duration
	// Tokens verifies "Authorization|<token>"; nil or disabled means every client receives notices
	// Tokens 校验 "Authorization|<token>"，为空或未启用时所有客户端都会收到通知
	Tokens TokenManager
	Logger *zap.Logger
}

// WebsocketClient one connected editor
// WebsocketClient 一个已连接的编辑器客户端
type WebsocketClient struct {
	conn       *gws.Conn
	Client     *ClientEntity
	TraceID    string
	authorized bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// Context 连接关闭时取消
func (c *WebsocketClient) Context() context.Context {
	return c.ctx
}

// Reply 向该客户端回复一条 "Type|json" 消息
func (c *WebsocketClient) Reply(msgType string, codeObj *code.Code) {
	res := Res{
		Code:    codeObj.Code(),
		Status:  codeObj.Status(),
		Message: codeObj.Lang.GetMessage(),
		Data:    codeObj.Data(),
	}
	if codeObj.HaveDetails() {
		res.Details = strings.Join(codeObj.Details(), ",")
	}
	payload, err := encodeMessage(msgType, res)
	if err == nil {
		_ = c.conn.WriteMessage(gws.OpcodeText, payload)
	}
}

// MessageHandler 处理一种类型的客户端消息，data 为 "|" 之后的内容
type MessageHandler func(c *WebsocketClient, data string)

// WebsocketServer pushes notices to connected editors
// WebsocketServer 向已连接的编辑器推送通知
type WebsocketServer struct {
	mu       sync.RWMutex
	clients  map[*gws.Conn]*WebsocketClient
	handlers map[string]MessageHandler
	up      *gws.Upgrader
	config  WebsocketServerConfig
	logger  *zap.Logger
}

func NewWebsocketServer(c WebsocketServerConfig) *WebsocketServer {
	if c.PingWait == 0 {
		c.PingWait = WebSocketServerPingWait
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	w := &WebsocketServer{
		clients:  make(map[*gws.Conn]*WebsocketClient),
		handlers: make(map[string]MessageHandler),
		config:   c,
		logger:   c.Logger,
	}
	w.up = gws.NewUpgrader(w, &w.config.GWSOption)
	return w
}

// Use 注册消息处理函数，只有已授权的客户端消息会被分发
func (w *WebsocketServer) Use(msgType string, h MessageHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[msgType] = h
}

func (w *WebsocketServer) authRequired() bool {
	return w.config.Tokens != nil && w.config.Tokens.Enabled()
}

// Run gin handler upgrading the request
// Run 升级请求为 WebSocket 的 gin 处理函数
func (w *WebsocketServer) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		socket, err := w.up.Upgrade(c.Writer, c.Request)
		if err != nil {
			w.logger.Error("WebsocketServer upgrade failed", zap.Error(err))
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		client := &WebsocketClient{
			conn:       socket,
			authorized: !w.authRequired(),
			ctx:        ctx,
			cancel:     cancel,
		}
		if v, ok := c.Get("trace_id"); ok {
			client.TraceID, _ = v.(string)
		}
		w.mu.Lock()
		w.clients[socket] = client
		w.mu.Unlock()
		go socket.ReadLoop()
	}
}

// Count 已连接的客户端数
func (w *WebsocketServer) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients)
}

// Notify broadcasts the notice to every authorized client
// Notify 向所有已授权的客户端广播通知
func (w *WebsocketServer) Notify(n domain.Notice) {
	payload, err := encodeMessage(MessageNotice, n)
	if err != nil {
		w.logger.Warn("WebsocketServer encode notice failed", zap.Error(err))
		return
	}

	b := gws.NewBroadcaster(gws.OpcodeText, payload)
	defer b.Close()

	w.mu.RLock()
	defer w.mu.RUnlock()
	for conn, c := range w.clients {
		if c.authorized {
			_ = b.Broadcast(conn)
		}
	}
}

// Close 关闭所有连接
func (w *WebsocketServer) Close() {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for conn := range w.clients {
		conn.WriteClose(1001, []byte("ServerShutdown"))
	}
}

func encodeMessage(msgType string, v any) ([]byte, error) {
	body, err := sonic.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(msgType+"|"), body...), nil
}

func (w *WebsocketServer) reply(conn *gws.Conn, msgType string, c *code.Code) {
	payload, err := encodeMessage(msgType, Res{
		Code:    c.Code(),
		Status:  c.Status(),
		Message: c.Lang.GetMessage(),
	})
	if err == nil {
		_ = conn.WriteMessage(gws.OpcodeText, payload)
	}
}

func (w *WebsocketServer) authorize(conn *gws.Conn, token string) {
	if !w.authRequired() {
		w.reply(conn, MessageAuthorization, code.Success)
		return
	}
	client, err := w.config.Tokens.Parse(token)
	if err != nil {
		w.logger.Warn("WebsocketServer authorization failed", zap.Error(err))
		w.reply(conn, MessageAuthorization, code.ErrorUnauthorized)
		conn.WriteClose(1000, []byte("AuthorizationFailed"))
		return
	}

	w.mu.Lock()
	if c, ok := w.clients[conn]; ok {
		c.authorized = true
		c.Client = client
	}
	w.mu.Unlock()
	w.logger.Info("WebsocketServer client authorized", zap.String("client", client.Client))
	w.reply(conn, MessageAuthorization, code.Success)
}

func (w *WebsocketServer) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnClose(conn *gws.Conn, err error) {
	w.mu.Lock()
	if c, ok := w.clients[conn]; ok {
		c.cancel()
		delete(w.clients, conn)
	}
	n := len(w.clients)
	w.mu.Unlock()
	w.logger.Debug("WebsocketServer client leave", zap.Int("count", n))
}

func (w *WebsocketServer) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
	_ = socket.WritePong(nil)
}

func (w *WebsocketServer) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))

	raw := message.Data.String()
	if raw == "close" {
		conn.WriteClose(1000, []byte("ClientClose"))
		return
	}
	msgType, data, ok := strings.Cut(raw, "|")
	if !ok {
		return
	}
	if msgType == MessageAuthorization {
		w.authorize(conn, data)
		return
	}

	w.mu.RLock()
	client := w.clients[conn]
	h := w.handlers[msgType]
	w.mu.RUnlock()
	if client == nil || h == nil {
		return
	}
	if !client.authorized {
		client.Reply(msgType, code.ErrorUnauthorized)
		return
	}
	h(client, data)
}
