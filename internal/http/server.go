// Package http serves the download form, the JSON API and finished files.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/internal/i18n"
	"github.com/changkevin51/Music-Downloader/pkg/text"
)

const (
	serviceName = "musicdl"
	// maxQueryBytes bounds request bodies; a query is one song name or URL.
	maxQueryBytes = 4 << 10
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; max-width: 720px; }
        .header { color: #333; }
        input[type=text] { width: 70%; padding: 8px; }
        button { padding: 8px 16px; }
        .status { color: #555; margin: 4px 0; }
        .error { color: #b00020; margin-top: 16px; }
        .result a { color: #0066cc; }
    </style>
</head>
<body>
    <h1 class="header">🎵 {{.Title}}</h1>
    <form method="post" action="/">
        <input type="text" name="query" value="{{.Query}}" placeholder="{{.Placeholder}}" autofocus>
        <button type="submit">{{.Submit}}</button>
    </form>
    {{range .Statuses}}<div class="status">{{.}}</div>
    {{end}}
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    {{if .Download}}<div class="result"><a href="{{.Download.URL}}">{{.Download.Label}}</a></div>{{end}}
</body>
</html>`))

type pageData struct {
	Title       string
	Placeholder string
	Submit      string
	Query       string
	Statuses    []string
	Error       string
	Download    *downloadLink
}

type downloadLink struct {
	URL   string
	Label string
}

type downloadRequest struct {
	Query string `json:"query"`
}

type fileResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type trackResponse struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type downloadResponse struct {
	Track           trackResponse `json:"track"`
	VideoURL        string        `json:"video_url"`
	File            fileResponse  `json:"file"`
	DurationSeconds float64       `json:"duration_seconds,omitempty"`
	Statuses        []string      `json:"statuses"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error    errorBody `json:"error"`
	Statuses []string  `json:"statuses,omitempty"`
}

type Server struct {
	config    *core.ServerConfig
	logger    *zap.Logger
	runner    core.Runner
	localizer *i18n.Localizer
	parser    *text.Parser
	files     *FileStore
	metrics   *Metrics
	server    *http.Server
}

func NewServer(config *core.ServerConfig, runner core.Runner, localizer *i18n.Localizer,
	metrics *Metrics, logger *zap.Logger) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		runner:    runner,
		localizer: localizer,
		parser:    text.NewParser(),
		files:     NewFileStore(config.MaxFiles, config.FileTTL),
		metrics:   metrics,
	}
	s.server = createHTTPServer(config, s.setupRoutes())
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"` + serviceName + `"}`))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /{$}", s.homeHandler)
	mux.HandleFunc("POST /{$}", s.formHandler)
	mux.HandleFunc("POST /api/v1/downloads", s.apiHandler)
	mux.HandleFunc("GET /files/{token}", s.fileHandler)

	return mux
}

// Handler is the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func (s *Server) page(query string) *pageData {
	return &pageData{
		Title:       s.localizer.T("web.title"),
		Placeholder: s.localizer.T("web.placeholder"),
		Submit:      s.localizer.T("web.submit"),
		Query:       query,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, s.page(""))
}

func (s *Server) formHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBytes)
	if err := r.ParseForm(); err != nil {
		data := s.page("")
		data.Error = s.localizer.Error(core.ErrEmptyQuery)
		s.render(w, http.StatusBadRequest, data)
		return
	}

	raw := r.PostFormValue("query")
	data := s.page(raw)
	result, statuses, err := s.run(r.Context(), raw)
	data.Statuses = statuses
	if err != nil {
		data.Error = s.localizer.Error(err)
		s.render(w, statusCode(err), data)
		return
	}

	token, file, err := s.files.Put(result.Output.Path)
	if err != nil {
		s.logger.Error("Failed to register finished file", zap.Error(err))
		data.Error = s.localizer.T("error.generic")
		s.render(w, http.StatusInternalServerError, data)
		return
	}
	data.Download = &downloadLink{
		URL:   "/files/" + token,
		Label: s.localizer.T("web.download", file.Name),
	}
	s.render(w, http.StatusOK, data)
}

func (s *Server) apiHandler(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Kind: core.KindInvalidQuery, Message: "request body must be JSON {\"query\": \"...\"}"},
		})
		return
	}

	result, statuses, err := s.run(r.Context(), req.Query)
	if err != nil {
		s.writeJSON(w, statusCode(err), errorResponse{
			Error:    errorBody{Kind: core.Kind(err), Message: s.localizer.Error(err)},
			Statuses: statuses,
		})
		return
	}

	token, file, err := s.files.Put(result.Output.Path)
	if err != nil {
		s.logger.Error("Failed to register finished file", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:    errorBody{Kind: core.KindInternal, Message: s.localizer.T("error.generic")},
			Statuses: statuses,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, downloadResponse{
		Track:           trackResponse{URL: result.Track.CanonicalURL, Title: result.Track.Title},
		VideoURL:        result.VideoURL,
		File:            fileResponse{Name: file.Name, URL: "/files/" + token, Size: file.Size},
		DurationSeconds: result.Duration.Seconds(),
		Statuses:        statuses,
	})
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	file, ok := s.files.Get(r.PathValue("token"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", disposition)
	http.ServeFile(w, r, file.Path)
	s.metrics.FilesServed.Inc()
}

// run executes one pipeline and collects its localized status lines. The run
// is detached from the request so a closed browser tab does not abort it.
func (s *Server) run(ctx context.Context, raw string) (*core.Result, []string, error) {
	query := s.parser.ParseQuery(raw)
	statuses := []string{}
	reporter := core.ReporterFunc(func(status core.Status) {
		statuses = append(statuses, s.localizer.Status(status))
	})

	s.logger.Debug("Web request", zap.String("query", query.String()))
	result, err := s.runner.Run(context.WithoutCancel(ctx), query, reporter)
	return result, statuses, err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func statusCode(err error) int {
	switch core.Kind(err) {
	case core.KindInvalidQuery:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindBusy:
		return http.StatusConflict
	case core.KindExtractionFailed, core.KindDownloadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
