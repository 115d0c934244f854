package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"price-scout/src/analysis"
	"price-scout/src/csvio"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"
	"price-scout/src/scheduler"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Fetcher   interfaces.IFetcher
	Scheduler *scheduler.BatchScheduler
	Store     interfaces.IPriceStore

	engine     *gin.Engine
	httpServer *http.Server
	deadline   time.Duration

	// WebSocket clients, owned by runHub
	clients     map[*Client]struct{}
	broadcast   chan models.MFeedEvent
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	connections atomic.Int64

	// Async batch runs
	runs   map[string]*runStatus
	runsMu sync.RWMutex

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type runStatus struct {
	Progress models.MBatchProgress `json:"progress"`
	Done     bool                  `json:"done"`
}

type batchRequest struct {
	MPNs    []string `json:"mpns"`
	Vendors []string `json:"vendors"`
	Async   bool     `json:"async"`
	Save    bool     `json:"save"`
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(
	cfg *models.MConfig,
	fetcher interfaces.IFetcher,
	sched *scheduler.BatchScheduler,
	store interfaces.IPriceStore,
	log *logger.Logger,
) *APIServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	deadline := time.Duration(cfg.Fetch.DeadlineSeconds) * time.Second
	if deadline <= 0 {
		deadline = 45 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &APIServer{
		Config:     cfg,
		Logger:     log,
		Fetcher:    fetcher,
		Scheduler:  sched,
		Store:      store,
		engine:     gin.Default(),
		deadline:   deadline,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MFeedEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		runs:       make(map[string]*runStatus),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.runHub()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/vendors", s.getVendors)
	api.GET("/prices/:mpn", s.getPrices)
	api.POST("/batch", s.postBatch)
	api.GET("/batch/:id", s.getBatch)
	api.GET("/history", s.getHistory)
	api.GET("/latest/:mpn", s.getLatest)
	api.GET("/stats", s.getStats)
	api.GET("/mpns", s.getMPNs)
	api.GET("/trends/:mpn", s.getTrends)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels async batches, disconnects websocket clients and shuts the
// HTTP server down.
func (s *APIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.runsMu.RLock()
	active := 0
	for _, r := range s.runs {
		if !r.Done {
			active++
		}
	}
	s.runsMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.connections.Load(),
		"vendors":     len(s.Fetcher.Vendors()),
		"active_runs": active,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getVendors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"vendors": s.Fetcher.Vendors()})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getPrices(c *gin.Context) {
	vendors, err := parseVendors(c.QueryArray("vendors"), s.Fetcher.Vendors())
	if err != nil {
		s.fail(c, err)
		return
	}

	mpn := c.Param("mpn")
	observations, err := s.Fetcher.FetchAll(c.Request.Context(), mpn, vendors, s.deadline)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := gin.H{
		"mpn":          mpn,
		"best":         scheduler.SelectBest(observations),
		"observations": observations,
	}
	if safeBool(c.Query("save")) {
		resp["recorded"] = s.record(c.Request.Context(), observations)
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *APIServer) postBatch(c *gin.Context) {
	var req batchRequest
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		mpns, err := csvio.ReadMPNs(c.Request.Body)
		if err != nil {
			s.fail(c, err)
			return
		}
		req = batchRequest{MPNs: mpns, Vendors: c.QueryArray("vendors"), Async: safeBool(c.Query("async")), Save: safeBool(c.Query("save"))}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MPNs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mpns cannot be empty"})
		return
	}
	vendors, err := parseVendors(req.Vendors, s.Fetcher.Vendors())
	if err != nil {
		s.fail(c, err)
		return
	}

	sched := *s.Scheduler
	if req.Save {
		sched.Recorder = s.Store
	}

	if !req.Async {
		results, err := sched.RunSync(c.Request.Context(), req.MPNs, vendors, nil)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
		return
	}

	run, err := s.startAsync(&sched, req.MPNs, vendors)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "total": run.Total})
}

// -----------------------------------------------------------------------------

// startAsync runs a batch on the server context and forwards its results and
// progress to the websocket feed.
func (s *APIServer) startAsync(sched *scheduler.BatchScheduler, mpns []string, vendors []models.Vendor) (*scheduler.BatchRun, error) {
	var (
		runID string
		ready = make(chan struct{})
	)
	run, err := sched.Run(s.ctx, mpns, vendors, func(p models.MBatchProgress) {
		<-ready
		s.runsMu.Lock()
		s.runs[runID].Progress = p
		s.runsMu.Unlock()
		s.Publish(models.MFeedEvent{Type: models.FeedProgress, RunID: runID, Progress: &p})
	})
	if err != nil {
		return nil, err
	}

	runID = run.ID
	s.runsMu.Lock()
	s.runs[runID] = &runStatus{Progress: models.MBatchProgress{RunID: runID, Total: run.Total}}
	s.runsMu.Unlock()
	close(ready)

	go func() {
		for res := range run.Results {
			s.Publish(models.MFeedEvent{Type: models.FeedResult, RunID: runID, Result: &res})
		}
		s.runsMu.Lock()
		s.runs[runID].Done = true
		progress := s.runs[runID].Progress
		s.runsMu.Unlock()
		s.Publish(models.MFeedEvent{Type: models.FeedDone, RunID: runID, Progress: &progress})
		s.Logger.Info("Async batch %s finished: %d ok, %d failed", runID, progress.Succeeded, progress.Failed)
	}()
	return run, nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) getBatch(c *gin.Context) {
	s.runsMu.RLock()
	st, ok := s.runs[c.Param("id")]
	var out runStatus
	if ok {
		out = *st
	}
	s.runsMu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHistory(c *gin.Context) {
	vendor, ok := s.vendorQuery(c)
	if !ok {
		return
	}
	records, err := s.Store.History(c.Request.Context(), vendor, c.Query("mpn"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getLatest(c *gin.Context) {
	latest, err := s.Store.Latest(c.Request.Context(), c.Param("mpn"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mpn": c.Param("mpn"), "latest": latest})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStats(c *gin.Context) {
	vendor, ok := s.vendorQuery(c)
	if !ok {
		return
	}
	stats, err := s.Store.Stats(c.Request.Context(), vendor)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMPNs(c *gin.Context) {
	mpns, err := s.Store.MPNs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mpns": mpns})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getTrends(c *gin.Context) {
	mpn := c.Param("mpn")
	grouped, err := s.Store.Trends(c.Request.Context(), mpn)
	if err != nil {
		s.fail(c, err)
		return
	}

	vendors := make([]models.Vendor, 0, len(grouped))
	for v := range grouped {
		vendors = append(vendors, v)
	}
	models.SortVendors(vendors)

	trends := make([]models.MPriceTrend, 0, len(vendors))
	for _, v := range vendors {
		trends = append(trends, analysis.SummarizeTrend(v, mpn, grouped[v]))
	}
	c.JSON(http.StatusOK, gin.H{"mpn": mpn, "trends": trends})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *APIServer) vendorQuery(c *gin.Context) (models.Vendor, bool) {
	raw := c.Query("vendor")
	if raw == "" {
		return "", true
	}
	v, err := models.ParseVendor(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return v, true
}

// -----------------------------------------------------------------------------

func (s *APIServer) record(ctx context.Context, observations []models.MObservation) []models.MRecordResult {
	var out []models.MRecordResult
	for _, o := range observations {
		if !o.Succeeded() {
			continue
		}
		res, err := s.Store.Record(ctx, o)
		if err != nil {
			s.Logger.Error("Failed to record %s/%s: %v", o.Vendor, o.MPN, err)
			continue
		}
		out = append(out, res)
	}
	return out
}

// -----------------------------------------------------------------------------

func (s *APIServer) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
