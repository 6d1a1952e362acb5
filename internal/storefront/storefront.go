// Package storefront resolves free text titles to storefront entries and
// collects their reviews, tags and listing metadata.
//
// Lookups go through an injected cache. Search results that cannot be
// decoded are treated as empty, failed detail requests come back as a failed
// Result rather than an error, so callers only ever inspect values.
package storefront

import (
	"catalogmatch/internal/components/assert"
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/extract"
	"catalogmatch/internal/fetcher"
	"catalogmatch/internal/matcher"
	"catalogmatch/internal/textnorm"
	"catalogmatch/internal/ttlcache"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("catalogmatch.internal.storefront")

const (
	DefaultSearchEndpoint = "https://store.steampowered.com/api/storesearch/"
	DefaultDetailEndpoint = "https://store.steampowered.com/app"
	DefaultCountryCode    = "us"
	DefaultLanguage       = "en"

	// the number of keywords used by the broadened search
	escalationKeywords = 3
)

const (
	report_client_search              = "client.search"
	report_client_find_app            = "client.find-app"
	report_client_complete_data_by_id = "client.complete-data-by-id"
	report_client_cache_size          = "client.cache-size"
)

// Fetcher is the subset of *fetcher.Fetcher used by Client.
//
// note: fault injection point
type Fetcher interface {
	FetchWithRetry(ctx context.Context, target string, query url.Values) (fetcher.Response, error)
}

type Options struct {
	SearchEndpoint string
	DetailEndpoint string
	CountryCode    string
	Language       string
	// Threshold is the minimum match score, zero means matcher.DefaultThreshold.
	Threshold float64
	// Coalesce makes concurrent lookups of the same uncached key wait for the
	// first one instead of repeating its requests.
	Coalesce bool
}

type Client struct {
	opts    Options
	fetcher Fetcher
	cache   *ttlcache.Cache[Cached]
	matcher matcher.Matcher
	group   *singleflight.Group
	tel     telemetry.API
}

func New(opts Options, f Fetcher, cache *ttlcache.Cache[Cached], tel telemetry.API) *Client {
	assert.NotNil(f)
	assert.NotNil(cache)
	assert.NotNil(tel)

	if opts.SearchEndpoint == "" {
		opts.SearchEndpoint = DefaultSearchEndpoint
	}
	if opts.DetailEndpoint == "" {
		opts.DetailEndpoint = DefaultDetailEndpoint
	}
	if opts.CountryCode == "" {
		opts.CountryCode = DefaultCountryCode
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}

	c := &Client{
		opts:    opts,
		fetcher: f,
		cache:   cache,
		matcher: matcher.New(opts.Threshold),
		tel:     telemetry.NewScopedAPI("storefront", tel),
	}
	if opts.Coalesce {
		c.group = &singleflight.Group{}
	}
	return c
}

func findKey(title string) string {
	return "find:" + title
}

func completeKey(id int) string {
	return "complete:" + strconv.Itoa(id)
}

// coalesce runs fn directly, or through the client's singleflight group when
// coalescing is enabled.
func coalesce[T any](c *Client, key string, fn func() (T, error)) (T, error) {
	if c.group == nil {
		return fn()
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		return fn()
	})
	if shared {
		c.tel.ReportDebug("coalesced lookup", "key", key)
	}
	return v.(T), err
}

type searchResponse struct {
	Total int                 `json:"total"`
	Items []matcher.Candidate `json:"items"`
}

// search never fails, anything that keeps it from producing candidates
// yields none.
func (c *Client) search(ctx context.Context, term string) []matcher.Candidate {
	ctx, span := tracer.Start(ctx, "search")
	defer span.End()
	span.SetAttributes(attribute.String("term", term))

	res, err := c.fetcher.FetchWithRetry(ctx, c.opts.SearchEndpoint, url.Values{
		"term": {term},
		"cc":   {c.opts.CountryCode},
		"l":    {c.opts.Language},
	})
	if err != nil {
		c.tel.ReportWarning(report_client_search, term, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil
	}

	var parsed searchResponse
	err = json.Unmarshal(res.Body, &parsed)
	if err != nil {
		err = fmt.Errorf("decode search response: %w", err)
		c.tel.ReportWarning(report_client_search, term, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed search response")
		return nil
	}

	span.SetAttributes(attribute.Int("candidates", len(parsed.Items)))
	return parsed.Items
}

var deltaWord = regexp.MustCompile(`(?i)\bdelta\b`)

// searchQueries lists the search terms tried for a title, in order. Each one
// after the first only runs if the previous ones produced no eligible candidate.
func searchQueries(title string) []string {
	queries := []string{title}

	keywords := textnorm.ExtractKeywords(title)
	if len(keywords) > escalationKeywords {
		keywords = keywords[:escalationKeywords]
	}
	if len(keywords) > 0 {
		queries = append(queries, strings.Join(keywords, " "))
	}

	if deltaWord.MatchString(title) {
		queries = append(queries, deltaWord.ReplaceAllString(title, "Δ"))
	}
	return queries
}

// resolve returns the candidates of the first search that produced at least
// one eligible candidate, or those of the last search if none did.
func (c *Client) resolve(ctx context.Context, title string) []matcher.Candidate {
	var candidates []matcher.Candidate
	for i, query := range searchQueries(title) {
		candidates = c.search(ctx, query)
		if len(matcher.FilterEligible(candidates)) > 0 {
			return candidates
		}
		c.tel.ReportDebug("no eligible candidates", "query", query, "escalation", i)
	}
	return candidates
}

// FindApp resolves title to a storefront entry, it returns ErrNoMatch when no
// candidate scores high enough. Only successful lookups are cached.
func (c *Client) FindApp(ctx context.Context, title string) (AppInfo, error) {
	ctx, span := tracer.Start(ctx, "FindApp")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	key := findKey(title)
	if cached, ok := c.cache.Get(key); ok && cached.App != nil {
		span.SetAttributes(attribute.Bool("cached", true))
		return *cached.App, nil
	}

	app, err := coalesce(c, key, func() (AppInfo, error) {
		candidates := c.resolve(ctx, title)
		match, ok := c.matcher.FindBestMatch(title, candidates)
		if !ok {
			return AppInfo{}, ErrNoMatch
		}
		app := AppInfo{ID: match.ID, Name: match.Name, Score: match.Score}
		c.cache.Set(key, Cached{App: &app})
		return app, nil
	})
	if err != nil {
		c.tel.ReportDebug("no match", "title", title)
		span.SetStatus(codes.Error, err.Error())
		return AppInfo{}, err
	}

	span.SetAttributes(
		attribute.Int("id", app.ID),
		attribute.Float64("score", app.Score),
	)
	span.SetStatus(codes.Ok, "")
	return app, nil
}

// recoverResult turns a panic inside a lookup into a failed result.
func (c *Client) recoverResult(id string, res *Result) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("unexpected failure: %v", r)
	c.tel.ReportBroken(id, err)
	*res = failure(res.Data, err)
}

func (c *Client) fetchComplete(ctx context.Context, id int) Result {
	ctx, span := tracer.Start(ctx, "fetchComplete")
	defer span.End()

	partial := CompleteData{ID: id}

	target, err := url.JoinPath(c.opts.DetailEndpoint, strconv.Itoa(id))
	if err != nil {
		c.tel.ReportBroken(report_client_complete_data_by_id, id, err)
		return failure(partial, err)
	}

	res, err := c.fetcher.FetchWithRetry(ctx, target, nil)
	if err != nil {
		c.tel.ReportBroken(report_client_complete_data_by_id, id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail request failed")
		return failure(partial, err)
	}
	if extract.Unavailable(res.Body) {
		c.tel.ReportDebug("entry not available", "id", id)
		span.SetStatus(codes.Error, ErrUnavailable.Error())
		return failure(partial, ErrUnavailable)
	}

	details, err := extract.Parse(ctx, res.Body)
	if err != nil {
		err = fmt.Errorf("parse detail page: %w", err)
		c.tel.ReportBroken(report_client_complete_data_by_id, id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed detail page")
		return failure(partial, err)
	}

	data := CompleteData{
		ID:       id,
		Name:     details.Name,
		Reviews:  details.Reviews.WithBackfill(),
		Tags:     details.Tags,
		Metadata: details.Metadata,
	}
	c.cache.Set(completeKey(id), Cached{Data: &data})
	c.tel.ReportCount(report_client_cache_size, int64(c.cache.Stats().Size))

	span.SetStatus(codes.Ok, "")
	return success(data)
}

// CompleteDataByID fetches and extracts the detail page of the entry id. A
// failed request or an unavailable entry produce a failed Result carrying
// only the id, failures are not cached.
func (c *Client) CompleteDataByID(ctx context.Context, id int) (res Result) {
	res.Data.ID = id
	defer c.recoverResult(report_client_complete_data_by_id, &res)

	ctx, span := tracer.Start(ctx, "CompleteDataByID")
	defer span.End()
	span.SetAttributes(attribute.Int("id", id))

	key := completeKey(id)
	if cached, ok := c.cache.Get(key); ok && cached.Data != nil {
		span.SetAttributes(attribute.Bool("cached", true))
		return success(*cached.Data)
	}

	res, _ = coalesce(c, key, func() (Result, error) {
		return c.fetchComplete(ctx, id), nil
	})
	return res
}

// CompleteDataByTitle is FindApp followed by CompleteDataByID, no detail
// request is made when the title does not resolve.
func (c *Client) CompleteDataByTitle(ctx context.Context, title string) (res Result) {
	defer c.recoverResult(report_client_find_app, &res)

	app, err := c.FindApp(ctx, title)
	if err != nil {
		return failure(CompleteData{}, err)
	}

	res = c.CompleteDataByID(ctx, app.ID)
	if res.Success && res.Data.Name == "" {
		res.Data.Name = app.Name
	}
	return res
}

// ReviewsOnly returns the review summaries of title, ok is false if the
// title could not be resolved or fetched.
func (c *Client) ReviewsOnly(ctx context.Context, title string) (reviews extract.Reviews, ok bool) {
	res := c.CompleteDataByTitle(ctx, title)
	if !res.Success {
		return extract.Reviews{}, false
	}
	return res.Data.Reviews, true
}

// TagsOnly returns the popular tags of title, ok is false if the title could
// not be resolved or fetched. Tags may be nil even when ok is true.
func (c *Client) TagsOnly(ctx context.Context, title string) (tags []string, ok bool) {
	res := c.CompleteDataByTitle(ctx, title)
	if !res.Success {
		return nil, false
	}
	return res.Data.Tags, true
}

// Explain runs the same searches as FindApp without touching the cache and
// returns how every candidate of the final search was judged.
func (c *Client) Explain(ctx context.Context, title string) []matcher.Ranked {
	ctx, span := tracer.Start(ctx, "Explain")
	defer span.End()
	return c.matcher.Rank(title, c.resolve(ctx, title))
}

func (c *Client) ClearCache() {
	c.cache.Clear()
}

func (c *Client) CacheStats() ttlcache.Stats {
	return c.cache.Stats()
}

// SweepCache removes expired entries and returns how many were removed.
func (c *Client) SweepCache() int {
	removed := c.cache.Sweep()
	c.tel.ReportCount(report_client_cache_size, int64(c.cache.Stats().Size))
	return removed
}
