package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/alexandrut83/rigdash/config"
	"github.com/alexandrut83/rigdash/dashboard"
)

// streamStatus reports the health of the telemetry stream
type streamStatus interface {
	Connected() bool
	Attempts() int
}

// server exposes the console over HTTP
type server struct {
	ctrl    *dashboard.Controller
	actions *dashboard.Actions
	editor  *dashboard.Editor
	hub     *pushHub
	stream  streamStatus
	logger  *zap.Logger
	now     func() time.Time
}

// actionRequest is the body of every console POST. Fields unused by an
// endpoint are ignored.
type actionRequest struct {
	Confirmed bool   `json:"confirmed"`
	Rig       string `json:"rig"`
	Additive  bool   `json:"additive"`
	Mode      string `json:"mode"`
	ID        string `json:"id"`
	Command   string `json:"command"`
	Name      string `json:"name"`
	Content   string `json:"content"`
}

// requestPrompter answers confirmations from the request body and collects
// alerts for the response. An unconfirmed request records the question so
// the browser can ask and post again.
type requestPrompter struct {
	confirmed bool
	pending   string
	alerts    []string
}

func (p *requestPrompter) Confirm(msg string) bool {
	if p.confirmed {
		return true
	}
	if p.pending == "" {
		p.pending = msg
	}
	return false
}

func (p *requestPrompter) Alert(msg string) {
	p.alerts = append(p.alerts, msg)
}

// newRouter builds the console routes
func newRouter(s *server, cfg config.Config, access *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Log.Access && access != nil {
		router.Use(accessLog(access))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Console.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.Console.AuthEnabled(),
		MaxAge:           12 * time.Hour,
	}))
	if cfg.Console.AuthEnabled() {
		router.Use(authMiddleware(cfg.Console.PasswordHash))
	}

	router.GET("/", s.page)
	router.GET("/fragment", s.fragment)
	router.GET("/ws", s.hub.Handle)

	api := router.Group("/api")
	{
		api.GET("/state", s.state)
		api.GET("/stats", s.stats)
		api.GET("/healthz", s.health)

		api.POST("/select", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.ctrl.Dispatch(c.Request.Context(), dashboard.SelectionChanged{Rig: req.Rig, Additive: req.Additive})
		}))
		api.POST("/select-all", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.ctrl.Dispatch(c.Request.Context(), dashboard.SelectAllToggled{})
		}))
		api.POST("/mode", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.actions.SetMode(c.Request.Context(), req.Mode)
		}))
		api.POST("/popover", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.ctrl.Dispatch(c.Request.Context(), dashboard.PopoverToggled{ID: req.ID})
		}))
		api.POST("/columns/reset", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.ctrl.Dispatch(c.Request.Context(), dashboard.ColumnsReset{})
		}))
		api.POST("/columns/:index/toggle", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			index, err := strconv.Atoi(c.Param("index"))
			if err != nil || index < dashboard.FirstColumn || index > dashboard.LastColumn {
				return errBadColumn
			}
			return s.ctrl.Dispatch(c.Request.Context(), dashboard.ColumnToggled{Index: index})
		}))

		api.POST("/actions/:action", s.handle(s.action))
		api.POST("/miner-mode", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.actions.SetMinerMode(c.Request.Context(), p, req.Mode)
		}))

		api.POST("/command", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.actions.Send(c.Request.Context(), p, req.Command)
		}))
		api.POST("/command/open", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.actions.OpenCommand(c.Request.Context())
		}))
		api.POST("/command/close", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.actions.CloseCommand(c.Request.Context())
		}))
		api.POST("/command/clear", s.handle(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.actions.ClearCommand(c.Request.Context())
		}))

		fs := api.Group("/flightsheets")
		fs.POST("/open", s.handleEditor(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.editor.Load(c.Request.Context(), p)
		}))
		fs.POST("/select", s.handleEditor(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.editor.Select(req.ID)
		}))
		fs.POST("/new", s.handleEditor(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			_, err := s.editor.New(p, req.Content)
			return err
		}))
		fs.POST("/save", s.handleEditor(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.editor.Save(c.Request.Context(), p, req.Name, req.Content)
		}))
		fs.POST("/delete", s.handleEditor(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.editor.Delete(c.Request.Context(), p)
		}))
		fs.POST("/apply", s.handleEditor(func(c *gin.Context, req actionRequest, p *requestPrompter) error {
			return s.editor.Apply(c.Request.Context(), p, req.Content)
		}))
	}
	return router
}

var (
	errBadColumn     = errors.New("column index out of range")
	errUnknownAction = errors.New("unknown action")
)

func (s *server) action(c *gin.Context, req actionRequest, p *requestPrompter) error {
	ctx := c.Request.Context()
	switch c.Param("action") {
	case "start":
		return s.actions.Start(ctx, p)
	case "stop":
		return s.actions.Stop(ctx, p)
	case "restart":
		return s.actions.Restart(ctx, p)
	case "reboot":
		return s.actions.Reboot(ctx, p)
	case "reset":
		return s.actions.HardReset(ctx, p)
	}
	return errUnknownAction
}

type actionFunc func(c *gin.Context, req actionRequest, p *requestPrompter) error

func (s *server) handle(fn actionFunc) gin.HandlerFunc {
	return s.run(fn, false)
}

func (s *server) handleEditor(fn actionFunc) gin.HandlerFunc {
	return s.run(fn, true)
}

func (s *server) run(fn actionFunc, withEditor bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req actionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p := &requestPrompter{confirmed: req.Confirmed}
		err := fn(c, req, p)

		body := gin.H{"alerts": p.alerts}
		if withEditor {
			body["editor"] = s.editor.State()
		}

		switch {
		case err == nil:
			c.JSON(http.StatusOK, body)
		case errors.Is(err, dashboard.ErrNotConfirmed) && p.pending != "":
			body["confirm"] = p.pending
			c.JSON(http.StatusConflict, body)
		default:
			body["error"] = err.Error()
			c.JSON(statusOf(err), body)
		}
	}
}

// statusOf maps action errors to HTTP statuses. Validation failures are the
// operator's to fix; everything else came from the backend.
func statusOf(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrNoSelection),
		errors.Is(err, dashboard.ErrEmptyCommand),
		errors.Is(err, dashboard.ErrEmptyFlightsheet),
		errors.Is(err, dashboard.ErrNoFlightsheet),
		errors.Is(err, dashboard.ErrNoFlightsheetID),
		errors.Is(err, dashboard.ErrInvalidMode),
		errors.Is(err, errBadColumn):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (s *server) page(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := dashboard.RenderPage(c.Writer, s.ctrl.View()); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *server) fragment(c *gin.Context) {
	html, err := dashboard.RigsHTML(s.ctrl.View())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *server) state(c *gin.Context) {
	st := s.ctrl.State()
	c.JSON(http.StatusOK, gin.H{
		"rigs":           st.Rigs,
		"selected":       st.SelectedNames(),
		"mode":           st.Mode,
		"hidden_columns": st.HiddenColumns(),
		"last_update":    st.LastUpdate,
		"stale":          s.ctrl.Stale(s.now()),
	})
}

func (s *server) stats(c *gin.Context) {
	body := gin.H{"selection": s.ctrl.Stats()}
	if h := s.ctrl.History(); h != nil {
		now := s.now()
		body["last_5m"] = h.Window(5*time.Minute, now)
		body["last_1h"] = h.Window(time.Hour, now)
	}
	c.JSON(http.StatusOK, body)
}

func (s *server) health(c *gin.Context) {
	stale := s.ctrl.Stale(s.now())
	status := http.StatusOK
	if stale {
		status = http.StatusServiceUnavailable
	}
	body := gin.H{"stale": stale}
	if s.stream != nil {
		body["stream_connected"] = s.stream.Connected()
		body["stream_attempts"] = s.stream.Attempts()
	}
	c.JSON(status, body)
}
