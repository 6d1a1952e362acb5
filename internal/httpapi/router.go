// Package httpapi exposes the storefront client as a JSON HTTP API.
package httpapi

import (
	"catalogmatch/internal/components/assert"
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/extract"
	"catalogmatch/internal/matcher"
	"catalogmatch/internal/storefront"
	"catalogmatch/internal/ttlcache"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const traceHeader = "X-Trace-Id"

var _ Catalog = (*storefront.Client)(nil)

const report_router_write_json = "router.write-json"

// Catalog is implemented by *storefront.Client.
type Catalog interface {
	FindApp(ctx context.Context, title string) (storefront.AppInfo, error)
	CompleteDataByID(ctx context.Context, id int) storefront.Result
	CompleteDataByTitle(ctx context.Context, title string) storefront.Result
	ReviewsOnly(ctx context.Context, title string) (extract.Reviews, bool)
	TagsOnly(ctx context.Context, title string) ([]string, bool)
	Explain(ctx context.Context, title string) []matcher.Ranked
	ClearCache()
	CacheStats() ttlcache.Stats
}

type router struct {
	catalog Catalog
	tel     telemetry.API
}

type errorResponse struct {
	Error string `json:"error"`
}

type reviewsResponse struct {
	Reviews extract.Reviews `json:"reviews"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

func NewRouter(catalog Catalog, tel telemetry.API) *chi.Mux {
	assert.NotNil(catalog)
	assert.NotNil(tel)

	r := router{
		catalog: catalog,
		tel:     telemetry.NewScopedAPI("httpapi", tel),
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(traceID)

	mux.Get("/healthz", r.handleHealthz)
	mux.Route("/v1", func(v1 chi.Router) {
		v1.Get("/apps/search", r.handleFindApp)
		v1.Get("/apps/{id}", r.handleCompleteByID)
		v1.Get("/titles/complete", r.handleCompleteByTitle)
		v1.Get("/titles/reviews", r.handleReviews)
		v1.Get("/titles/tags", r.handleTags)
		v1.Get("/titles/explain", r.handleExplain)
		v1.Get("/cache/stats", r.handleCacheStats)
		v1.Delete("/cache", r.handleClearCache)
	})
	return mux
}

// traceID echoes the caller's X-Trace-Id, or a fresh one, on every response.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(traceHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(traceHeader, id)
		next.ServeHTTP(w, req)
	})
}

// normalizeTitle collapses whitespace and compatibility characters so
// equivalent titles share cache entries.
func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return title
	}
	return strings.Join(strings.Fields(norm.NFKC.String(title)), " ")
}

func (r router) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(payload)
	if err != nil {
		r.tel.ReportWarning(report_router_write_json, err)
	}
}

func (r router) writeError(w http.ResponseWriter, status int, message string) {
	r.writeJSON(w, status, errorResponse{Error: message})
}

// title reads the required title query parameter, it writes a 400 and
// returns false when it is missing.
func (r router) title(w http.ResponseWriter, req *http.Request) (string, bool) {
	title := normalizeTitle(req.URL.Query().Get("title"))
	if title == "" {
		r.writeError(w, http.StatusBadRequest, "missing title")
		return "", false
	}
	return title, true
}

func resultStatus(res storefront.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Error == storefront.ErrNoMatch.Error(), res.Error == storefront.ErrUnavailable.Error():
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (r router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r router) handleFindApp(w http.ResponseWriter, req *http.Request) {
	title, ok := r.title(w, req)
	if !ok {
		return
	}
	app, err := r.catalog.FindApp(req.Context(), title)
	if errors.Is(err, storefront.ErrNoMatch) {
		r.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		r.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	r.writeJSON(w, http.StatusOK, app)
}

func (r router) handleCompleteByID(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(req, "id"))
	if err != nil || id <= 0 {
		r.writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	res := r.catalog.CompleteDataByID(req.Context(), id)
	r.writeJSON(w, resultStatus(res), res)
}

func (r router) handleCompleteByTitle(w http.ResponseWriter, req *http.Request) {
	title, ok := r.title(w, req)
	if !ok {
		return
	}
	res := r.catalog.CompleteDataByTitle(req.Context(), title)
	r.writeJSON(w, resultStatus(res), res)
}

func (r router) handleReviews(w http.ResponseWriter, req *http.Request) {
	title, ok := r.title(w, req)
	if !ok {
		return
	}
	reviews, ok := r.catalog.ReviewsOnly(req.Context(), title)
	if !ok {
		r.writeError(w, http.StatusNotFound, "no reviews found")
		return
	}
	r.writeJSON(w, http.StatusOK, reviewsResponse{Reviews: reviews})
}

func (r router) handleTags(w http.ResponseWriter, req *http.Request) {
	title, ok := r.title(w, req)
	if !ok {
		return
	}
	tags, ok := r.catalog.TagsOnly(req.Context(), title)
	if !ok {
		r.writeError(w, http.StatusNotFound, "no tags found")
		return
	}
	r.writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (r router) handleExplain(w http.ResponseWriter, req *http.Request) {
	title, ok := r.title(w, req)
	if !ok {
		return
	}
	r.writeJSON(w, http.StatusOK, r.catalog.Explain(req.Context(), title))
}

func (r router) handleCacheStats(w http.ResponseWriter, req *http.Request) {
	r.writeJSON(w, http.StatusOK, r.catalog.CacheStats())
}

func (r router) handleClearCache(w http.ResponseWriter, req *http.Request) {
	r.catalog.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
