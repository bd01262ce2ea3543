package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"embyscout/internal/api"
	"embyscout/internal/library"
	"embyscout/internal/logging"
	"embyscout/internal/pagescan"
	"embyscout/internal/registry"
	"embyscout/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind, token string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusNotFound, "not found", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})
	r.Use(requestIDMiddleware, authMiddleware(token, srv))

	r.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/search", srv.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/check", srv.handleCheck).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", srv.handleScanStart).Methods(http.MethodPost)
	r.HandleFunc("/api/scan/{id}", srv.handleScanJob).Methods(http.MethodGet)
	r.HandleFunc("/api/servers", srv.handleServerList).Methods(http.MethodGet)
	r.HandleFunc("/api/servers", srv.handleServerAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/servers/{index:[0-9]+}", srv.handleServerUpdate).Methods(http.MethodPut)
	r.HandleFunc("/api/servers/{index:[0-9]+}", srv.handleServerRemove).Methods(http.MethodDelete)
	r.HandleFunc("/api/servers/{index:[0-9]+}/test", srv.handleServerTest).Methods(http.MethodGet)
	r.HandleFunc("/api/sites", srv.handleSiteList).Methods(http.MethodGet)
	r.HandleFunc("/api/sites", srv.handleSiteAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/sites/{index:[0-9]+}", srv.handleSiteUpdate).Methods(http.MethodPut)
	r.HandleFunc("/api/sites/{index:[0-9]+}", srv.handleSiteRemove).Methods(http.MethodDelete)
	r.HandleFunc("/api/position", srv.handlePositionGet).Methods(http.MethodGet)
	r.HandleFunc("/api/position", srv.handlePositionSet).Methods(http.MethodPut)
	r.HandleFunc("/api/page/scan", srv.handlePageScan).Methods(http.MethodPost)
	r.Handle("/metrics", d.app.Metrics.Handler()).Methods(http.MethodGet)

	srv.handler = r
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled; no bind address configured")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Searches fan out to every server; leave room for the slowest.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StartedAt:    api.FormatTime(status.StartedAt),
		StoreDriver:  status.StoreDriver,
		LockFilePath: status.LockFilePath,
		ActiveScans:  status.ActiveScans,
		TMDBEnabled:  status.TMDBEnabled,
	}
	reg := s.daemon.app.Registry
	if servers, err := reg.Servers(r.Context()); err == nil {
		payload.Servers = len(servers)
	}
	if sites, err := reg.Sites(r.Context()); err == nil {
		payload.Sites = len(sites)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	blocks, err := s.daemon.app.Search.Collect(r.Context(), keyword)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBlocks(keyword, blocks))
}

// handleCheck checks a title against the server bound to url, or against
// the server at index when no url is given.
func (s *apiServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	title := strings.TrimSpace(query.Get("title"))
	if title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required", "validation")
		return
	}
	a := s.daemon.app
	var res library.Result
	if pageURL := strings.TrimSpace(query.Get("url")); pageURL != "" {
		res = a.Checker.Check(r.Context(), a.Registry, pageURL, title)
	} else {
		index, err := strconv.Atoi(query.Get("server"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "url or server index is required", "validation")
			return
		}
		server, err := a.Registry.Server(r.Context(), index)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		res = a.Checker.CheckServer(r.Context(), server, library.Result{Title: title})
	}
	a.Metrics.ObserveCheck(string(res.Status))
	s.writeJSON(w, http.StatusOK, api.FromCheck(res))
}

func (s *apiServer) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var req api.ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.daemon.StartScan(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *apiServer) handleScanJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.ScanJob(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleServerList(w http.ResponseWriter, r *http.Request) {
	servers, err := s.daemon.app.Registry.Servers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ServerListResponse{Servers: api.FromServers(servers)})
}

func (s *apiServer) handleServerAdd(w http.ResponseWriter, r *http.Request) {
	var in api.ServerInput
	if !s.decode(w, r, &in) {
		return
	}
	reg := s.daemon.app.Registry
	index, err := reg.AddServer(r.Context(), in.ToServer(nil))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	server, err := reg.Server(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromServer(index, server))
}

func (s *apiServer) handleServerUpdate(w http.ResponseWriter, r *http.Request) {
	index := pathIndex(r)
	var in api.ServerInput
	if !s.decode(w, r, &in) {
		return
	}
	reg := s.daemon.app.Registry
	previous, err := reg.Server(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := reg.UpdateServer(r.Context(), index, in.ToServer(&previous)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	updated, err := reg.Server(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromServer(index, updated))
}

func (s *apiServer) handleServerRemove(w http.ResponseWriter, r *http.Request) {
	index := pathIndex(r)
	removed, err := s.daemon.app.Registry.RemoveServer(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromServer(index, removed))
}

func (s *apiServer) handleServerTest(w http.ResponseWriter, r *http.Request) {
	index := pathIndex(r)
	a := s.daemon.app
	server, err := a.Registry.Server(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	online, err := a.Probe(r.Context(), server)
	resp := api.ServerTestResponse{Index: index, Online: online}
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSiteList(w http.ResponseWriter, r *http.Request) {
	sites, servers, err := s.siteState(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SiteListResponse{Sites: api.FromSites(sites, servers)})
}

func (s *apiServer) handleSiteAdd(w http.ResponseWriter, r *http.Request) {
	var in api.SiteInput
	if !s.decode(w, r, &in) {
		return
	}
	index, err := s.daemon.app.Registry.AddSite(r.Context(), in.ToSite())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeSite(r.Context(), w, http.StatusCreated, index)
}

func (s *apiServer) handleSiteUpdate(w http.ResponseWriter, r *http.Request) {
	index := pathIndex(r)
	var in api.SiteInput
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.daemon.app.Registry.UpdateSite(r.Context(), index, in.ToSite()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeSite(r.Context(), w, http.StatusOK, index)
}

func (s *apiServer) handleSiteRemove(w http.ResponseWriter, r *http.Request) {
	index := pathIndex(r)
	reg := s.daemon.app.Registry
	removed, err := reg.RemoveSite(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	servers, err := reg.Servers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	site := api.FromSites([]registry.SiteConfig{removed}, servers)[0]
	site.Index = index
	s.writeJSON(w, http.StatusOK, site)
}

func (s *apiServer) siteState(ctx context.Context) ([]registry.SiteConfig, []registry.ServerConfig, error) {
	reg := s.daemon.app.Registry
	sites, err := reg.Sites(ctx)
	if err != nil {
		return nil, nil, err
	}
	servers, err := reg.Servers(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sites, servers, nil
}

func (s *apiServer) writeSite(ctx context.Context, w http.ResponseWriter, status, index int) {
	sites, servers, err := s.siteState(ctx)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	all := api.FromSites(sites, servers)
	if index < 0 || index >= len(all) {
		s.writeError(w, http.StatusNotFound, "site not found", "not_found")
		return
	}
	s.writeJSON(w, status, all[index])
}

func (s *apiServer) handlePositionGet(w http.ResponseWriter, r *http.Request) {
	pos, err := s.daemon.app.Registry.Position(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Position{Top: pos.Top, Left: pos.Left})
}

func (s *apiServer) handlePositionSet(w http.ResponseWriter, r *http.Request) {
	var in api.Position
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.daemon.app.Registry.SetPosition(r.Context(), registry.PanelPosition{Top: in.Top, Left: in.Left}); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, in)
}

func (s *apiServer) handlePageScan(w http.ResponseWriter, r *http.Request) {
	var req api.PageScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	pageURL := strings.TrimSpace(req.URL)
	if !pagescan.IsRemote(pageURL) {
		s.writeError(w, http.StatusBadRequest, "an http or https url is required", "validation")
		return
	}
	anns, err := s.daemon.app.PageScanner().Scan(r.Context(), pageURL, pageURL)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromAnnotations(pageURL, anns))
}

// pathIndex reads the {index} route variable. The route pattern only admits
// digits, so parse failures cannot happen for matched requests.
func pathIndex(r *http.Request) int {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return -1
	}
	return index
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "validation")
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := api.Encode(w, payload, false); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, statusForError(err), err.Error(), services.Classify(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrJobNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrExternalService), errors.Is(err, services.ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
