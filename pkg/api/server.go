// Package api serves a topology over HTTP: a JSON REST interface to the
// router and a server-sent event stream of commits and traffic highlights.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/auth"
	"github.com/newtron-network/newtsim/pkg/health"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/util"
	"github.com/newtron-network/newtsim/pkg/version"
)

// HeaderUser names the caller in the audit log.
const HeaderUser = "X-Newtsim-User"

// Server is the HTTP front end of one router.
type Server struct {
	router  *router.Router
	hub     *Hub
	metrics http.Handler
	checker *health.Checker
	e       *echo.Echo
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHub uses an existing event hub. The hub must also be registered as a
// router observer.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// New creates the server. Without WithHub the event stream carries
// highlight changes only.
func New(r *router.Router, opts ...Option) *Server {
	s := &Server{router: r, checker: health.NewChecker()}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub()
	}
	r.Highlighter().Subscribe(s.hub.Highlight)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			util.WithComponent("api").WithFields(map[string]interface{}{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Debug("request")
			return nil
		},
	}))

	e.GET("/healthz", s.healthz)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	g := e.Group("/api/v1")
	g.GET("/topology", s.topology)
	g.GET("/devices", s.listDevices)
	g.GET("/devices/:id", s.getDevice)
	g.POST("/devices/:id/commands", s.execute)
	g.GET("/devices/:id/console", s.getConsole)
	g.DELETE("/devices/:id/console", s.clearConsole)
	g.GET("/devices/:id/history", s.history)
	g.GET("/devices/:id/routes", s.routes)
	g.GET("/devices/:id/health", s.deviceHealth)
	g.GET("/export", s.export)
	g.GET("/profile", s.getProfile)
	g.PUT("/profile", s.setProfile)
	g.POST("/reconverge", s.reconverge)
	g.GET("/highlight", s.highlight)
	g.GET("/events", s.events)
	g.GET("/audit", s.auditLog)
	g.GET("/whoami", s.whoami)

	s.e = e
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	util.WithComponent("api").Infof("HTTP API listening on %s", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// DeviceSummary is the list form of a device.
type DeviceSummary struct {
	ID       string     `json:"id"`
	Hostname string     `json:"hostname"`
	Type     string     `json:"type"`
	Vendor   string     `json:"vendor"`
	Model    string     `json:"model,omitempty"`
	View     model.View `json:"view"`
	Prompt   string     `json:"prompt"`
}

// CommandRequest is the body of POST /devices/:id/commands.
type CommandRequest struct {
	Command string `json:"command"`
}

// ProfileRequest is the body of PUT /profile.
type ProfileRequest struct {
	Profile string `json:"profile"`
}

// ProfileResponse describes the active vendor profile.
type ProfileResponse struct {
	Profile     string   `json:"profile"`
	Strategy    string   `json:"strategy"`
	Description string   `json:"description,omitempty"`
	Available   []string `json:"available"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"topology": s.router.TopologyName(),
		"version":  version.Version,
	})
}

func (s *Server) summaries() []DeviceSummary {
	devices := s.router.Devices()
	out := make([]DeviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceSummary{
			ID:       d.ID,
			Hostname: d.Hostname,
			Type:     d.Type,
			Vendor:   d.Vendor,
			Model:    d.Model,
			View:     d.CLI.View,
			Prompt:   s.router.Prompt(d.ID),
		})
	}
	return out
}

func (s *Server) topology(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":    s.router.TopologyName(),
		"devices": s.summaries(),
		"cables":  s.router.Cables(),
	})
}

func (s *Server) listDevices(c echo.Context) error {
	return c.JSON(http.StatusOK, s.summaries())
}

func (s *Server) device(c echo.Context) (*model.Device, error) {
	d := s.router.Device(c.Param("id"))
	if d == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("device %s not found", c.Param("id")))
	}
	return d, nil
}

func (s *Server) getDevice(c echo.Context) error {
	d, err := s.device(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// source names the caller of a request for the audit log and access checks.
func (s *Server) source(c echo.Context) context.Context {
	user := c.Request().Header.Get(HeaderUser)
	if user == "" {
		user = c.RealIP()
	}
	return router.WithSource(c.Request().Context(), router.Source{
		Kind:    audit.SourceHTTP,
		User:    user,
		Session: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

func httpError(err error) error {
	if errors.Is(err, util.ErrPermissionDenied) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (s *Server) execute(c echo.Context) error {
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.router.ExecuteCommand(s.source(c), c.Param("id"), req.Command)
	if err != nil {
		return httpError(err)
	}
	if out == nil {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("device %s not found", c.Param("id")))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getConsole(c echo.Context) error {
	d, err := s.device(c)
	if err != nil {
		return err
	}
	lines := d.Console
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"prompt": s.router.Prompt(d.ID),
		"lines":  lines,
	})
}

func (s *Server) clearConsole(c echo.Context) error {
	if err := s.router.Authorize(s.source(c), auth.PermConsoleClear, c.Param("id")); err != nil {
		return httpError(err)
	}
	if !s.router.ClearConsoleLogs(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("device %s not found", c.Param("id")))
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) history(c echo.Context) error {
	if _, err := s.device(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.router.History(c.Param("id")))
}

func (s *Server) routes(c echo.Context) error {
	d, err := s.device(c)
	if err != nil {
		return err
	}
	routes := d.Routes.Sorted()
	if routes == nil {
		routes = []model.Route{}
	}
	return c.JSON(http.StatusOK, routes)
}

// deviceHealth runs the device health checks; ?check= selects one.
func (s *Server) deviceHealth(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		report *health.Report
		err    error
	)
	if name := c.QueryParam("check"); name != "" {
		report, err = s.checker.RunCheck(ctx, s.router, c.Param("id"), name)
	} else {
		report, err = s.checker.Run(ctx, s.router, c.Param("id"))
	}
	switch {
	case errors.Is(err, util.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) export(c echo.Context) error {
	return c.String(http.StatusOK, s.router.ExportRunningConfig())
}

func (s *Server) profile(desc string) ProfileResponse {
	return ProfileResponse{
		Profile:     s.router.ActiveVendorProfile(),
		Strategy:    s.router.ActiveStrategy().ID(),
		Description: desc,
		Available:   strategy.Profiles(),
	}
}

func (s *Server) getProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, s.profile(""))
}

func (s *Server) setProfile(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.router.Authorize(s.source(c), auth.PermProfileSet, ""); err != nil {
		return httpError(err)
	}
	_, desc := s.router.UpdateCLIStrategy(req.Profile)
	return c.JSON(http.StatusOK, s.profile(desc))
}

func (s *Server) reconverge(c echo.Context) error {
	ctx := s.source(c)
	if err := s.router.Authorize(ctx, auth.PermReconverge, ""); err != nil {
		return httpError(err)
	}
	sum, err := s.router.Reconverge(ctx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) highlight(c echo.Context) error {
	return c.JSON(http.StatusOK, s.router.Highlighter().Current())
}

// auditLog returns the audit events of this topology, newest last.
// Query parameters: device, user, limit (default 100).
func (s *Server) whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, s.router.Identity(s.source(c)))
}

func (s *Server) auditLog(c echo.Context) error {
	if err := s.router.Authorize(s.source(c), auth.PermAuditView, ""); err != nil {
		return httpError(err)
	}
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	events, err := audit.Query(audit.Filter{
		Device: c.QueryParam("device"),
		User:   c.QueryParam("user"),
	})
	if err != nil {
		return httpError(err)
	}
	topo := s.router.TopologyName()
	out := make([]*audit.Event, 0, len(events))
	for _, ev := range events {
		if ev.Topology == "" || ev.Topology == topo {
			out = append(out, ev)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return c.JSON(http.StatusOK, out)
}

const keepAlive = 15 * time.Second

// events streams hub events until the client goes away.
func (s *Server) events(c echo.Context) error {
	ch, cancel := s.hub.Subscribe()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	tick := time.NewTicker(keepAlive)
	defer tick.Stop()
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
