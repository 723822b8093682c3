package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ali123/ali123/internal/logger"
	"github.com/ali123/ali123/internal/state"
	"github.com/ali123/ali123/internal/store"
	"github.com/ali123/ali123/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImportAPI is the import pipeline as seen by the REST layer.
type ImportAPI interface {
	QueueImport(ctx context.Context, storeID int64, payload types.ImportPayload) (*types.QueueEntry, error)
	UpdateImport(ctx context.Context, id int64, update types.ImportUpdate) (*types.QueueEntry, error)
	DeleteImport(ctx context.Context, id int64) error
	GetImport(ctx context.Context, id int64) (*types.QueueEntry, error)
	ListImports(ctx context.Context, filter types.ListImportsFilter) (*types.PaginationResult[types.QueueEntry], error)
	Stats(ctx context.Context, storeID *int64) (map[state.JobStatus]int, error)
	PreviewPricing(payload types.ImportPayload) (types.PreviewResult, error)
}

// Runner triggers background work on demand.
type Runner interface {
	RunNow(ctx context.Context) (types.ProcessStats, error)
	ScheduleImmediateSync() bool
}

type FulfillmentAPI interface {
	MapOrder(ctx context.Context, orderID int64) (*types.FulfillmentRequest, error)
	MarkFulfilled(ctx context.Context, orderID int64, tracking types.Tracking) error
}

type RouteHandler struct {
	imports        ImportAPI
	runner         Runner
	fulfillment    FulfillmentAPI
	userStore      store.UserStore
	metricsHandler http.Handler
	healthCheck    func(context.Context) error
	UseAuth        bool
	logger         *zap.Logger
}

type RouteHandlerOption func(*RouteHandler)

// WithMetricsHandler exposes h on GET /metrics.
func WithMetricsHandler(h http.Handler) RouteHandlerOption {
	return func(r *RouteHandler) {
		r.metricsHandler = h
	}
}

// WithHealthCheck makes /healthz report 503 when check fails.
func WithHealthCheck(check func(context.Context) error) RouteHandlerOption {
	return func(r *RouteHandler) {
		r.healthCheck = check
	}
}

func NewRouteHandler(
	imports ImportAPI,
	runner Runner,
	fulfillment FulfillmentAPI,
	userStore store.UserStore,
	useAuth bool,
	log *zap.Logger,
	opts ...RouteHandlerOption,
) *RouteHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &RouteHandler{
		imports:     imports,
		runner:      runner,
		fulfillment: fulfillment,
		userStore:   userStore,
		UseAuth:     useAuth,
		logger:      log.Named("http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Engine builds the gin engine with middleware and every route registered.
func (h *RouteHandler) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(
		logger.RequestID(h.logger),
		logger.GinMiddleware(h.logger),
		logger.Recovery(h.logger),
	)

	engine.GET("/healthz", h.handleHealth)
	if h.metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(h.metricsHandler))
	}

	api := engine.Group("/api/v1", authMiddleware(h.UseAuth, h.userStore))
	h.RegisterRoutes(api)
	return engine
}

func (h *RouteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	imports.GET("", h.handleListImports)
	imports.GET("/stats", h.handleImportStats)
	imports.POST("", h.handleQueueImport)
	imports.POST("/process", h.handleProcessQueue)
	imports.GET("/:id", h.handleGetImport)
	imports.PATCH("/:id", h.handleUpdateImport)
	imports.DELETE("/:id", h.handleDeleteImport)

	rg.POST("/pricing/preview", h.handlePreviewPricing)
	rg.POST("/tracking/sync", h.handleTrackingSync)

	rg.GET("/orders/:id/fulfillment", h.handleGetFulfillment)
	rg.POST("/orders/:id/fulfillment", h.handleMarkFulfilled)
}

type listImportsQuery struct {
	Status  []string `form:"status"`
	StoreID *int64   `form:"store_id" binding:"omitempty,min=1"`
	Limit   int      `form:"limit"`
	Offset  int      `form:"offset"`
}

type storeQuery struct {
	StoreID *int64 `form:"store_id" binding:"omitempty,min=1"`
}

type markFulfilledRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
	Carrier        string `json:"carrier"`
	CarrierCode    string `json:"carrier_code"`
	Status         string `json:"status"`
}

func (h *RouteHandler) handleHealth(c *gin.Context) {
	if h.healthCheck != nil {
		if err := h.healthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *RouteHandler) handleListImports(c *gin.Context) {
	var q listImportsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	var statuses []string
	for _, raw := range q.Status {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}

	page, err := h.imports.ListImports(c.Request.Context(), types.ListImportsFilter{
		Statuses: statuses,
		StoreID:  q.StoreID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RouteHandler) handleImportStats(c *gin.Context) {
	var q storeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	counts, err := h.imports.Stats(c.Request.Context(), q.StoreID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *RouteHandler) handleGetImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entry, err := h.imports.GetImport(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *RouteHandler) handleQueueImport(c *gin.Context) {
	var q storeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	var payload types.ImportPayload
	if !decodeBody(c, &payload) {
		return
	}

	var storeID int64
	if q.StoreID != nil {
		storeID = *q.StoreID
	}
	entry, err := h.imports.QueueImport(c.Request.Context(), storeID, payload)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *RouteHandler) handleUpdateImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var update types.ImportUpdate
	if !decodeBody(c, &update) {
		return
	}
	entry, err := h.imports.UpdateImport(c.Request.Context(), id, update)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *RouteHandler) handleDeleteImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.imports.DeleteImport(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RouteHandler) handleProcessQueue(c *gin.Context) {
	stats, err := h.runner.RunNow(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *RouteHandler) handlePreviewPricing(c *gin.Context) {
	var payload types.ImportPayload
	if !decodeBody(c, &payload) {
		return
	}
	result, err := h.imports.PreviewPricing(payload)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RouteHandler) handleTrackingSync(c *gin.Context) {
	status := "already_scheduled"
	if h.runner.ScheduleImmediateSync() {
		status = "scheduled"
	}
	c.JSON(http.StatusAccepted, gin.H{"status": status})
}

func (h *RouteHandler) handleGetFulfillment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, err := h.fulfillment.MapOrder(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *RouteHandler) handleMarkFulfilled(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req markFulfilledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.fulfillment.MarkFulfilled(c.Request.Context(), id, types.Tracking{
		Number:      req.TrackingNumber,
		Carrier:     req.Carrier,
		CarrierCode: req.CarrierCode,
		Status:      req.Status,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "fulfilled"})
}

// decodeBody rejects an empty body before decoding JSON into dst.
func decodeBody(c *gin.Context, dst any) bool {
	raw, err := c.GetRawData()
	if err != nil {
		bindError(c, err)
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		abortWithError(c, http.StatusBadRequest, "validation_error", "request body is required")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		bindError(c, err)
		return false
	}
	return true
}
