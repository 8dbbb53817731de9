package mock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
	"github.com/vulndash/vulndash/pkg/watch"
)

// Server is the mock backend
type Server struct {
	echo   *echo.Echo
	config Config
	store  *Store
	agent  *Agent

	mu    sync.Mutex
	stats Stats

	watcher *watch.Watcher
	cancel  context.CancelFunc
}

// NewServer opens the store, applies the seed file and registers routes
func NewServer(cfg Config) (*Server, error) {
	store, err := OpenStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		config: cfg,
		store:  store,
		agent:  NewAgent(store, cfg.Agent),
		stats:  Stats{RequestsByPath: make(map[string]int64)},
	}

	if cfg.SeedFile != "" {
		if err := s.reloadSeed(cfg.SeedFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.CORS != nil && cfg.CORS.Enabled {
		origins := cfg.CORS.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency.Truncate(time.Microsecond))
			return nil
		},
	}))
	e.Use(s.statsMiddleware)

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api")

	project := api.Group("/project")
	project.GET("/get_all_projects", s.listProjects)
	project.POST("/create", s.createProject)
	project.GET("/get_project/:id", s.getProject)
	project.GET("/indexing-status/:id", s.indexingStatus)

	vulns := api.Group("/vulnerabilities")
	vulns.GET("/get-vulnerabilities/:pid", s.listVulnerabilities)
	vulns.GET("/get-vulnerability/:pid/:vid", s.getVulnerability)

	agent := api.Group("/agent")
	agent.POST("/pentest/test", s.startTest)
	agent.GET("/pentest/status/:task_id", s.taskStatus)

	api.GET("/mock/stats", s.getStats)
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. With WatchSeed the seed file is reloaded on
// every change.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.config.WatchSeed && s.config.SeedFile != "" {
		w, err := watch.New(s.config.SeedFile, watch.DefaultOptions(), s.reloadSeed)
		if err != nil {
			return err
		}
		s.watcher = w
		go func() {
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("seed watcher stopped: %v", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logger.Info("mock backend '%s' listening on %s", s.config.Name, addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, the agent and the store
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	err := s.echo.Shutdown(ctx)
	s.Close()
	return err
}

// Close releases the agent and the store without touching the listener
func (s *Server) Close() {
	s.agent.Close()
	if err := s.store.Close(); err != nil {
		logger.Warn("closing store: %v", err)
	}
}

// Stats returns a copy of the request statistics
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.RequestsByPath = make(map[string]int64, len(s.stats.RequestsByPath))
	for k, v := range s.stats.RequestsByPath {
		out.RequestsByPath[k] = v
	}
	return out
}

func (s *Server) reloadSeed(path string) error {
	seed, err := LoadSeed(path)
	if err != nil {
		return err
	}
	if err := s.store.ApplySeed(context.Background(), seed); err != nil {
		return err
	}
	logger.Info("loaded %d seed project(s) from %s", len(seed.Projects), path)
	return nil
}

func (s *Server) statsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		s.simulateLatency()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		duration := time.Since(start)
		s.mu.Lock()
		s.stats.Requests++
		s.stats.LastRequest = start
		s.stats.RequestsByPath[c.Path()]++
		if c.Response().Status >= http.StatusBadRequest {
			s.stats.Errors++
		}
		if s.stats.AverageLatency == 0 {
			s.stats.AverageLatency = duration
		} else {
			s.stats.AverageLatency = (s.stats.AverageLatency + duration) / 2
		}
		s.mu.Unlock()
		return nil
	}
}

func (s *Server) simulateLatency() {
	l := s.config.Latency
	if l.Fixed > 0 {
		time.Sleep(l.Fixed)
		return
	}
	if l.Min > 0 && l.Max > l.Min {
		jitter := time.Duration(rand.Int63n(int64(l.Max - l.Min)))
		time.Sleep(l.Min + jitter)
	}
}

func detail(c echo.Context, code int, msg string) error {
	return c.JSON(code, errorResponse{Detail: msg})
}

// ---- Handlers ----

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": s.config.Name})
}

func (s *Server) getStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Stats())
}

func (s *Server) listProjects(c echo.Context) error {
	projects, err := s.store.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectSummary{ID: p.ID, Name: p.Name})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createProject(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("project_name"))
	sourceURL := strings.TrimSpace(c.FormValue("url"))
	if name == "" || sourceURL == "" {
		return detail(c, http.StatusBadRequest, "project_name and url are required")
	}

	var vulns []Vulnerability
	fh, err := c.FormFile("csv_file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return detail(c, http.StatusBadRequest, err.Error())
		}
		defer f.Close()
		vulns, err = ParseCSV(f)
		if err != nil {
			return detail(c, http.StatusBadRequest, err.Error())
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return detail(c, http.StatusBadRequest, err.Error())
	}

	p := &Project{
		ID:             uuid.NewString(),
		Name:           name,
		URL:            sourceURL,
		DeploymentURL:  strings.TrimSpace(c.FormValue("deployment_url")),
		IndexingStatus: string(vuln.IndexingNotStarted),
	}
	if err := s.store.SaveProject(c.Request().Context(), p, vulns); err != nil {
		return err
	}
	s.agent.StartIndexing(p.ID)

	logger.Info("created project %s (%s) with %d findings", p.Name, p.ID, len(vulns))
	return c.JSON(http.StatusOK, createResponse{Message: "Project created successfully", ProjectID: p.ID})
}

func (s *Server) getProject(c echo.Context) error {
	p, err := s.store.GetProject(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return detail(c, http.StatusNotFound, "Project not found")
	}
	if err != nil {
		return err
	}

	out := projectResponse{
		ID:              p.ID,
		Name:            p.Name,
		URL:             p.URL,
		DeploymentURL:   p.DeploymentURL,
		IndexingStatus:  vuln.IndexingStatus(p.IndexingStatus),
		Vulnerabilities: make(map[string]vuln.Vulnerability, len(p.Vulnerabilities)),
	}
	for _, v := range p.Vulnerabilities {
		out.Vulnerabilities[v.ID] = v.API()
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) indexingStatus(c echo.Context) error {
	p, err := s.store.GetProject(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return detail(c, http.StatusNotFound, "Project not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, indexingResponse{Status: vuln.IndexingStatus(p.IndexingStatus)})
}

func (s *Server) listVulnerabilities(c echo.Context) error {
	p, err := s.store.GetProject(c.Request().Context(), c.Param("pid"))
	if errors.Is(err, ErrNotFound) {
		return detail(c, http.StatusNotFound, "Project not found")
	}
	if err != nil {
		return err
	}
	out := make(map[string]vuln.Vulnerability, len(p.Vulnerabilities))
	for _, v := range p.Vulnerabilities {
		out[v.ID] = v.API()
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getVulnerability(c echo.Context) error {
	v, err := s.store.GetVulnerability(c.Request().Context(), c.Param("pid"), c.Param("vid"))
	if errors.Is(err, ErrNotFound) {
		return detail(c, http.StatusNotFound, "Vulnerability not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v.API())
}

func (s *Server) startTest(c echo.Context) error {
	var req testRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ProjectID == "" || req.VulnerabilityID == "" {
		return detail(c, http.StatusBadRequest, "project_id and vulnerability_id are required")
	}

	task, err := s.agent.StartTest(c.Request().Context(), req.ProjectID, req.VulnerabilityID)
	if errors.Is(err, ErrNotFound) {
		return detail(c, http.StatusNotFound, "Vulnerability not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, testResponse{
		TaskID:  task.ID,
		Status:  task.Status,
		Message: fmt.Sprintf("Testing vulnerability %s", req.VulnerabilityID),
	})
}

func (s *Server) taskStatus(c echo.Context) error {
	t, err := s.store.GetTask(c.Request().Context(), c.Param("task_id"))
	if errors.Is(err, ErrNotFound) {
		return detail(c, http.StatusNotFound, "Task not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t.view())
}
