package backtesthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradedash/internal/backtest"
	"tradedash/internal/fixture"
	"tradedash/internal/logger"
	"tradedash/internal/metrics"

	"github.com/gin-gonic/gin"
)

const (
	maxFixtureTrades    = 10_000
	defaultMaxBodyBytes = 64 << 20
)

// Server 提供回测指标相关的 HTTP API。
type Server struct {
	addr   string
	eval   *backtest.Evaluator
	router *gin.Engine
	log    logger.Component

	fixtureCapital float64
	maxBodyBytes   int64
}

// Config 描述回测 HTTP Server 的依赖。
type Config struct {
	Addr      string
	Evaluator *backtest.Evaluator
	// FixtureCapital 是 /fixtures 生成样例的初始资金。
	FixtureCapital float64
	// MaxBodyBytes 限制 POST 请求体大小，<=0 时使用 defaultMaxBodyBytes。
	MaxBodyBytes int64
}

// NewServer 构建回测 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Evaluator == nil {
		return nil, errors.New("evaluator 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:           cfg.Addr,
		eval:           cfg.Evaluator,
		router:         router,
		log:            logger.With("http"),
		fixtureCapital: cfg.FixtureCapital,
		maxBodyBytes:   cfg.MaxBodyBytes,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api/backtest")
	api.POST("/metrics", s.handleMetrics)
	api.GET("/fixtures", s.handleFixture)
	api.POST("/runs", s.handleRunSubmit)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/equity", s.handleRunEquity)
	api.POST("/runs/:id/recompute", s.handleRunRecompute)
	api.DELETE("/runs/:id", s.handleRunDelete)
}

// Handler 暴露路由，便于测试与嵌入。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "options": s.eval.Options()})
}

func (s *Server) handleMetrics(c *gin.Context) {
	doc, ok := s.decode(c)
	if !ok {
		return
	}
	res, err := s.eval.Evaluate(c.Request.Context(), doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleFixture(c *gin.Context) {
	seed, err := strconv.ParseUint(c.DefaultQuery("seed", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed 必须为非负整数"})
		return
	}
	trades, err := strconv.Atoi(c.DefaultQuery("trades", "20"))
	if err != nil || trades <= 0 || trades > maxFixtureTrades {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trades 超出范围 (1-10000)"})
		return
	}
	sc := fixture.NewGenerator(seed, fixture.Config{Trades: trades, InitialCapital: s.fixtureCapital}).Scenario()
	c.JSON(http.StatusOK, sc)
}

func (s *Server) handleRunSubmit(c *gin.Context) {
	doc, ok := s.decode(c)
	if !ok {
		return
	}
	run, err := s.eval.Submit(c.Request.Context(), doc)
	if err != nil {
		if run.ID != "" && metrics.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "run": run})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"run": run})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.eval.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.eval.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	offset, limit := page(c, 200)
	trades, err := s.eval.ListTrades(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunEquity(c *gin.Context) {
	offset, limit := page(c, 1000)
	points, err := s.eval.ListEquity(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity": points})
}

func (s *Server) handleRunRecompute(c *gin.Context) {
	run, err := s.eval.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		if run.ID != "" && metrics.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "run": run})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunDelete(c *gin.Context) {
	if err := s.eval.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// decode 读取请求体（受 maxBodyBytes 限制）；Content-Type 含 yaml 时按 YAML 解析。
func (s *Server) decode(c *gin.Context) (backtest.Document, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return backtest.Document{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return backtest.Document{}, false
	}
	format := backtest.FormatJSON
	if strings.Contains(strings.ToLower(c.ContentType()), "yaml") {
		format = backtest.FormatYAML
	}
	doc, err := s.eval.Decode(raw, format)
	if err != nil {
		s.fail(c, err)
		return backtest.Document{}, false
	}
	return doc, true
}

func (s *Server) fail(c *gin.Context, err error) {
	var ie *metrics.InputError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": ie.Field})
	case metrics.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, backtest.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func page(c *gin.Context, defLimit int) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defLimit)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 5000 {
		limit = defLimit
	}
	return offset, limit
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Infof("listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
