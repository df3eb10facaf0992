// Package server is the local admin server: source health, run
// reports, and the serendipity feed.
package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"serendip/internal/domain"
	"serendip/internal/sample"
	"serendip/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options tunes the serving defaults taken from config.
type Options struct {
	SampleTarget int
	WindowDays   int
}

// Server is the HTTP server for the admin UI and JSON API.
type Server struct {
	db    *store.DB
	opts  Options
	pages map[string]*template.Template
	mux   *http.ServeMux
	now   func() time.Time
	seed  func() int64
}

// New creates a new Server.
func New(db *store.DB, opts Options) (*Server, error) {
	if opts.SampleTarget <= 0 {
		opts.SampleTarget = 30
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 3
	}

	funcMap := template.FuncMap{
		"timeago": timeAgo,
		"deref": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return t.Format("2006-01-02 15:04")
		},
	}

	// Parse base template first, then clone it per page so each page
	// gets its own {{define "content"}}.
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"index.html", "feed.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:    db,
		opts:  opts,
		pages: pages,
		mux:   http.NewServeMux(),
		now:   time.Now,
		seed:  func() int64 { return time.Now().UnixNano() },
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve runs the server on the given port.
func Serve(db *store.DB, port int, opts Options) error {
	s, err := New(db, opts)
	if err != nil {
		return err
	}
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.Handler())
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/feed", s.handleFeed)
	s.mux.HandleFunc("/sources/", s.handleSourceToggle)
	s.mux.HandleFunc("/api/sources", s.handleAPISources)
	s.mux.HandleFunc("/api/reports", s.handleAPIReports)
	s.mux.HandleFunc("/api/feed", s.handleAPIFeed)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sources, err := s.db.ListSources()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	reports, err := s.db.ListRunReports(10)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Sources": sources,
		"Reports": reports,
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	articles, err := s.sampleFeed(r)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "feed.html", map[string]any{
		"Articles": articles,
	})
}

// handleSourceToggle flips the enabled flag: POST /sources/{id}/toggle.
func (s *Server) handleSourceToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/sources/")
	id, ok := strings.CutSuffix(path, "/toggle")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}

	src, err := s.db.GetSource(id)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if src == nil {
		http.NotFound(w, r)
		return
	}
	if err := s.db.SetSourceEnabled(id, !src.Enabled); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAPISources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.ListSources()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	type sourceView struct {
		ID                  string     `json:"id"`
		Name                string     `json:"name"`
		URL                 string     `json:"url"`
		Strategy            string     `json:"strategy"`
		Enabled             bool       `json:"enabled"`
		Status              string     `json:"status"`
		ConsecutiveFailures int        `json:"consecutiveFailures"`
		ErrorMessage        string     `json:"errorMessage,omitempty"`
		LastFetchedAt       *time.Time `json:"lastFetchedAt,omitempty"`
		LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
		TotalArticles       int        `json:"totalArticles"`
		AvgArticles         float64    `json:"avgArticles"`
	}

	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView{
			ID:                  src.ID,
			Name:                src.Name,
			URL:                 src.URL,
			Strategy:            string(src.Strategy),
			Enabled:             src.Enabled,
			Status:              string(src.Status),
			ConsecutiveFailures: src.ConsecutiveFailures,
			ErrorMessage:        src.ErrorMessage,
			LastFetchedAt:       src.LastFetchedAt,
			LastSuccessAt:       src.LastSuccessAt,
			TotalArticles:       src.TotalArticles,
			AvgArticles:         src.AvgArticles,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleAPIReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	reports, err := s.db.ListRunReports(limit)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	type reportView struct {
		ID               int64                 `json:"id"`
		StartedAt        time.Time             `json:"startedAt"`
		SourcesAttempted int                   `json:"sourcesAttempted"`
		ArticlesAdded    int                   `json:"articlesAdded"`
		ErrorCount       int                   `json:"errorCount"`
		Results          []domain.SourceResult `json:"results"`
	}
	views := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		views = append(views, reportView{
			ID:               rep.ID,
			StartedAt:        rep.StartedAt,
			SourcesAttempted: rep.SourcesAttempted,
			ArticlesAdded:    rep.ArticlesAdded,
			ErrorCount:       rep.ErrorCount,
			Results:          rep.Results,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleAPIFeed(w http.ResponseWriter, r *http.Request) {
	articles, err := s.sampleFeed(r)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, articles)
}

// sampleFeed draws the serendipity feed: range query over the recency
// window, then the balanced sampler. ?n= overrides the target.
func (s *Server) sampleFeed(r *http.Request) ([]domain.Article, error) {
	target := s.opts.SampleTarget
	if v := r.URL.Query().Get("n"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			target = n
		}
	}

	cutoff := s.now().AddDate(0, 0, -s.opts.WindowDays)
	pool, err := s.db.ArticlesFetchedSince(cutoff, 0)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.seed()))
	return sample.Sample(pool, target, rng), nil
}

func (s *Server) render(w http.ResponseWriter, page string, data map[string]any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("rendering %s: %v", page, err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
