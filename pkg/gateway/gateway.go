package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/repo"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/logging"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/statuschannel"
)

// Enqueuer accepts an order for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, order *model.Order) error
}

type Config struct {
	Addr string `yaml:"addr"`
}

// Gateway is the HTTP/WebSocket ingress: it accepts create-order requests,
// upgrades status-stream subscriptions, and serves the persisted record.
// Execution never happens here; the create call returns as soon as the job
// is queued.
type Gateway struct {
	cfg      Config
	queue    Enqueuer
	status   *statuschannel.Channel
	records  repo.IOrderRecord
	upgrader websocket.Upgrader
	srv      *http.Server
}

func New(cfg Config, queue Enqueuer, status *statuschannel.Channel, records repo.IOrderRecord) *Gateway {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	return &Gateway{
		cfg:     cfg,
		queue:   queue,
		status:  status,
		records: records,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (g *Gateway) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.POST("/orders/execute", g.handleCreateOrder)
	api.GET("/orders/execute", g.handleStatusStream)
	api.GET("/orders/:orderID", g.handleGetOrder)

	return r
}

func (g *Gateway) Start(ctx context.Context) error {
	g.srv = &http.Server{
		Addr:    g.cfg.Addr,
		Handler: g.Router(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		if err := g.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorf("gateway listen on %s: %v", g.cfg.Addr, err)
		}
	}()
	zap.S().Infof("gateway listening on %s", g.cfg.Addr)
	return nil
}

func (g *Gateway) Stop(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}

type createOrderRequest struct {
	AssetIn  string          `json:"assetIn"`
	AssetOut string          `json:"assetOut"`
	AmountIn decimal.Decimal `json:"amountIn"`
}

func (g *Gateway) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	orderID := uuid.NewString()
	ctx := logging.WithOrderID(c.Request.Context(), orderID)
	log, ctx := logging.GetLogger(ctx)

	order, err := model.NewOrder(orderID, req.AssetIn, req.AssetOut, req.AmountIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.queue.Enqueue(ctx, order); err != nil {
		log.Error(ctx, "enqueue order", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to accept order"})
		return
	}

	log.Info(ctx, "order accepted",
		zap.String("asset_in", order.AssetIn),
		zap.String("asset_out", order.AssetOut),
		zap.String("amount_in", order.AmountIn.String()),
	)
	c.JSON(http.StatusOK, gin.H{"orderId": orderID})
}

func (g *Gateway) handleStatusStream(c *gin.Context) {
	orderID := c.Query("orderId")

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Warnf("websocket upgrade failed: %v", err)
		return
	}

	if orderID == "" {
		_ = conn.WriteJSON(gin.H{"error": "orderId query parameter is required"})
		conn.Close()
		return
	}

	sink := newWSSink(conn)
	g.status.Bind(orderID, sink)

	// The stream opens with a pending event; the pipeline takes over from
	// routing onward.
	_ = sink.Send(model.NewEventPending(orderID))

	go g.readLoop(orderID, conn)
}

// readLoop drains client frames until the connection dies, then releases
// the binding. The pipeline keeps running either way; later events for an
// unbound order are dropped.
func (g *Gateway) readLoop(orderID string, conn *websocket.Conn) {
	defer func() {
		g.status.Unbind(orderID)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) handleGetOrder(c *gin.Context) {
	record, err := g.records.GetByOrderID(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		zap.S().Errorf("get order record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.JSON(http.StatusOK, record)
}
