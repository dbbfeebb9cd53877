package web

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/geniass/price-tracker/pkg/model"
	"github.com/geniass/price-tracker/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dashboardEvents = 50

// Core is what the interface needs from the tracker.
type Core interface {
	Add(url string, target decimal.Decimal) error
	Remove(url string) (bool, error)
	Edit(oldURL, newURL string, target decimal.Decimal) error
	List() ([]model.Product, error)
	RunCycleAsync()
	Subscribe() (<-chan model.Event, func())
	Recent(n int) []model.Event
}

type Server struct {
	core     Core
	logger   *zap.Logger
	prefix   string
	upgrader websocket.Upgrader
}

type productRequest struct {
	URL         string `json:"url" form:"url" binding:"required"`
	TargetPrice string `json:"target_price" form:"target_price" binding:"required"`
}

type editRequest struct {
	OldURL      string `json:"old_url" form:"old_url" binding:"required"`
	URL         string `json:"url" form:"url" binding:"required"`
	TargetPrice string `json:"target_price" form:"target_price" binding:"required"`
}

type removeRequest struct {
	URL string `json:"url" form:"url" binding:"required"`
}

func NewServer(core Core, logger *zap.Logger, pathPrefix string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		core:   core,
		logger: logger,
		prefix: pathPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Router builds the gin engine serving the dashboard and the JSON API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	g := r.Group(s.prefix)

	g.GET("/", s.dashboard)
	g.POST("/products", s.addForm)
	g.POST("/products/edit", s.editForm)
	g.POST("/products/remove", s.removeForm)
	g.POST("/check", s.checkForm)

	api := g.Group("/api")
	{
		api.GET("/products", s.listProducts)
		api.POST("/products", s.addProduct)
		api.PUT("/products", s.editProduct)
		api.DELETE("/products", s.removeProduct)
		api.POST("/check", s.check)
		api.GET("/events", s.events)
		api.GET("/events/ws", s.eventStream)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func statusFor(err error) int {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) add(req productRequest) error {
	target, err := store.ParseTargetPrice(req.TargetPrice)
	if err != nil {
		return err
	}
	return s.core.Add(req.URL, target)
}

func (s *Server) edit(req editRequest) error {
	target, err := store.ParseTargetPrice(req.TargetPrice)
	if err != nil {
		return err
	}
	return s.core.Edit(req.OldURL, req.URL, target)
}

// --- JSON API ---

func (s *Server) listProducts(c *gin.Context) {
	ps, err := s.core.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	if ps == nil {
		ps = []model.Product{}
	}
	c.JSON(http.StatusOK, ps)
}

func (s *Server) addProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := s.add(req); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": req.URL})
}

func (s *Server) editProduct(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := s.edit(req); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": req.URL})
}

func (s *Server) removeProduct(c *gin.Context) {
	u := c.Query("url")
	if u == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter required"})
		return
	}
	removed, err := s.core.Remove(u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) check(c *gin.Context) {
	s.core.RunCycleAsync()
	c.JSON(http.StatusAccepted, gin.H{"status": "check started"})
}

func (s *Server) events(c *gin.Context) {
	c.JSON(http.StatusOK, s.core.Recent(0))
}

func (s *Server) eventStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.core.Subscribe()
	defer unsubscribe()

	// the client never sends anything; reading detects when it goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// --- HTML dashboard ---

func (s *Server) dashboard(c *gin.Context) {
	ctx := DashboardContext{
		BaseContext: BaseContext{PathPrefix: s.prefix},
		Error:       c.Query("error"),
		LastUpdated: time.Now(),
	}

	ps, err := s.core.List()
	if err != nil {
		s.logger.Error("listing products", zap.Error(err))
		ctx.Error = "could not read tracked products"
	}
	ctx.Products = ps

	recent := s.core.Recent(dashboardEvents)
	for i := len(recent) - 1; i >= 0; i-- {
		ctx.Events = append(ctx.Events, recent[i])
	}

	var buf bytes.Buffer
	if err := RenderDashboard(&buf, ctx); err != nil {
		s.logger.Error("rendering dashboard", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) redirect(c *gin.Context, err error) {
	target := s.prefix + "/"
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.logger.Error("form request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		}
		target += "?error=" + url.QueryEscape(err.Error())
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) addForm(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBind(&req); err != nil {
		s.redirect(c, errors.New("url and target price are required"))
		return
	}
	s.redirect(c, s.add(req))
}

func (s *Server) editForm(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBind(&req); err != nil {
		s.redirect(c, errors.New("url and target price are required"))
		return
	}
	s.redirect(c, s.edit(req))
}

func (s *Server) removeForm(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBind(&req); err != nil {
		s.redirect(c, errors.New("url is required"))
		return
	}
	_, err := s.core.Remove(req.URL)
	s.redirect(c, err)
}

func (s *Server) checkForm(c *gin.Context) {
	s.core.RunCycleAsync()
	s.redirect(c, nil)
}
