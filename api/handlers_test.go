package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/app"
	"github.com/gcbaptista/tagsearch/internal/testutil"
	"github.com/gcbaptista/tagsearch/model"
)

func setupTestApp(t *testing.T, mutate func(cfg *config.Config)) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "api.db")
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

// seedApp imports the fixture corpus through the ingest service. Post ids follow
// fixture order starting at 1.
func seedApp(t *testing.T, a *app.App) {
	t.Helper()
	ctx := context.Background()
	_, err := a.Ingest.ImportPosts(ctx, testutil.FixturePosts)
	require.NoError(t, err)
	for _, g := range testutil.FixtureGroups {
		_, err := a.Ingest.ImportGroup(ctx, g)
		require.NoError(t, err)
	}
}

func setupTestRouter(t *testing.T, a *app.App) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(a, zerolog.Nop())
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		buf = bytes.NewBuffer(data)
	}
	req, _ := http.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "body: %s", w.Body.String())
}

type searchBody struct {
	Total       int                 `json:"total"`
	TotalPages  int                 `json:"total_pages"`
	PostIDs     []int64             `json:"post_ids"`
	Seed        string              `json:"seed"`
	UnknownTags []string            `json:"unknown_tags"`
	Expansions  map[string][]string `json:"expansions"`
	Suggestions map[string][]string `json:"suggestions"`
	QueryID     string              `json:"query_id"`
}

func TestHealthCheckHandler(t *testing.T) {
	a := setupTestApp(t, nil)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["schema_version"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader), "every response carries a request id")
}

func TestRequestIDPropagation(t *testing.T) {
	a := setupTestApp(t, nil)
	router := setupTestRouter(t, a)

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	a := setupTestApp(t, nil)
	router := setupTestRouter(t, a)

	doRequest(router, "GET", "/health", nil)
	w := doRequest(router, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tagsearch_http_request_duration_seconds")
}

func TestSearchPostsHandler(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantIDs     []int64
		wantTotal   int
		wantUnknown []string
	}{
		{
			name:       "include and exclude",
			path:       "/posts/search?tags=blue_eyes,-smile&order=oldest",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{1, 4},
			wantTotal:  2,
		},
		{
			name:       "newest is the default order",
			path:       "/posts/search?tags=long_hair",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{3, 2, 1},
			wantTotal:  3,
		},
		{
			name:       "largest first",
			path:       "/posts/search?tags=solo&order=largest",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{3, 6, 1},
			wantTotal:  3,
		},
		{
			name:       "pagination",
			path:       "/posts/search?tags=blue_eyes&order=oldest&page=2&page_size=3",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{6},
			wantTotal:  4,
		},
		{
			name:       "wildcard include",
			path:       "/posts/search?tags=*_eyes&order=oldest",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{1, 2, 3, 4, 6},
			wantTotal:  5,
		},
		{
			name:       "wildcard exclude",
			path:       "/posts/search?tags=-*_hair&order=oldest",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{5, 6},
			wantTotal:  2,
		},
		{
			name:        "unknown include tag",
			path:        "/posts/search?tags=no_such_tag",
			wantStatus:  http.StatusOK,
			wantIDs:     []int64{},
			wantUnknown: []string{"no_such_tag"},
		},
		{name: "invalid order", path: "/posts/search?tags=solo&order=sideways", wantStatus: http.StatusBadRequest},
		{name: "under specified wildcard", path: "/posts/search?tags=a*", wantStatus: http.StatusBadRequest},
		{name: "match all wildcard", path: "/posts/search?tags=*", wantStatus: http.StatusBadRequest},
		{name: "included and excluded", path: "/posts/search?tags=solo,-solo", wantStatus: http.StatusBadRequest},
		{name: "negative page", path: "/posts/search?tags=solo&page=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "GET", tt.path, nil)
			require.Equal(t, tt.wantStatus, w.Code, "body: %s", w.Body.String())
			if tt.wantStatus != http.StatusOK {
				var apiErr APIError
				decode(t, w, &apiErr)
				assert.NotEmpty(t, apiErr.Code)
				return
			}

			var body searchBody
			decode(t, w, &body)
			if len(tt.wantIDs) == 0 {
				assert.Empty(t, body.PostIDs)
			} else {
				assert.Equal(t, tt.wantIDs, body.PostIDs)
			}
			assert.Equal(t, tt.wantTotal, body.Total)
			assert.Equal(t, tt.wantUnknown, body.UnknownTags)
			assert.NotEmpty(t, body.QueryID)
		})
	}
}

func TestSearchSuggestsForUnknownTags(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/posts/search?tags=blue_eyse", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body searchBody
	decode(t, w, &body)
	assert.Empty(t, body.PostIDs)
	assert.Equal(t, []string{"blue_eyse"}, body.UnknownTags)
	assert.Equal(t, map[string][]string{"blue_eyse": {"blue_eyes"}}, body.Suggestions)
}

func TestSearchRandomOrderIsSeeded(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/posts/search?tags=blue_eyes&order=random", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first searchBody
	decode(t, w, &first)
	require.NotEmpty(t, first.Seed, "a generated seed is returned")

	w = doRequest(router, "GET", "/posts/search?tags=blue_eyes&order=random&seed="+first.Seed, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var again searchBody
	decode(t, w, &again)
	assert.Equal(t, first.PostIDs, again.PostIDs, "same seed, same order")
	assert.ElementsMatch(t, []int64{1, 2, 4, 6}, again.PostIDs)
}

func TestRecommendationsHandler(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/posts/1/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var body struct {
		PostID          int64              `json:"post_id"`
		Recommendations []model.ScoredPost `json:"recommendations"`
		Source          string             `json:"source"`
	}
	decode(t, w, &body)
	assert.Equal(t, int64(1), body.PostID)
	assert.Equal(t, "computed", body.Source)
	require.Len(t, body.Recommendations, 2)
	assert.Equal(t, int64(6), body.Recommendations[0].PostID)
	assert.Equal(t, int64(4), body.Recommendations[1].PostID)

	w = doRequest(router, "GET", "/posts/1/recommendations?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Equal(t, "cache", body.Source)
	assert.Len(t, body.Recommendations, 1)

	w = doRequest(router, "GET", "/posts/5/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Empty(t, body.Recommendations, "no connective tags is not an error")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   ErrorCode
	}{
		{"non numeric id", "/posts/abc/recommendations", http.StatusBadRequest, ErrorCodeValidationFailed},
		{"unknown post", "/posts/9999/recommendations", http.StatusNotFound, ErrorCodePostNotFound},
		{"negative limit", "/posts/1/recommendations?limit=-1", http.StatusBadRequest, ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "GET", tt.path, nil)
			require.Equal(t, tt.wantStatus, w.Code)
			var apiErr APIError
			decode(t, w, &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestMergedGroupsHandler(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	var body struct {
		Total             int                 `json:"total"`
		Groups            []model.MergedGroup `json:"groups"`
		RawCountsBySource map[string]int      `json:"raw_counts_by_source"`
	}

	w := doRequest(router, "GET", "/groups/merged?order=oldest", nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	decode(t, w, &body)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Groups, 2)
	assert.Len(t, body.Groups[0].Groups, 2, "pool/1 and gallery/9 merge")
	assert.Equal(t, map[string]int{"pool": 2, "gallery": 1}, body.RawCountsBySource)

	w = doRequest(router, "GET", "/groups/merged?source_type=gallery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Equal(t, 1, body.Total)

	w = doRequest(router, "GET", "/groups/merged?order=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWildcardHandlers(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	validations := []struct {
		pattern string
		valid   bool
	}{
		{"ab*", true},
		{"*ab", true},
		{"blue_eyes", true},
		{"*", false},
		{"-*", false},
		{"***", false},
		{"a*", false},
	}
	for _, v := range validations {
		t.Run("validate "+v.pattern, func(t *testing.T) {
			w := doRequest(router, "GET", "/tags/wildcard/validate?pattern="+v.pattern, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var body struct {
				Valid bool   `json:"valid"`
				Error string `json:"error"`
			}
			decode(t, w, &body)
			assert.Equal(t, v.valid, body.Valid)
			assert.Equal(t, v.valid, body.Error == "")
		})
	}

	w := doRequest(router, "GET", "/tags/wildcard/expand?pattern=*_eyes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var expand struct {
		Tags  []string `json:"tags"`
		Total int      `json:"total"`
	}
	decode(t, w, &expand)
	assert.ElementsMatch(t, []string{"blue_eyes", "red_eyes"}, expand.Tags)
	assert.Equal(t, 2, expand.Total)

	w = doRequest(router, "GET", "/tags/wildcard/expand", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(router, "GET", "/tags/wildcard/expand?pattern=*", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWildcardCapacityExceeded(t *testing.T) {
	a := setupTestApp(t, func(cfg *config.Config) { cfg.Search.WildcardCap = 1 })
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/posts/search?tags=*_eyes", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr APIError
	decode(t, w, &apiErr)
	assert.Equal(t, ErrorCodeWildcardCapacity, apiErr.Code)
}

func TestSuggestTagsHandler(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/tags/suggest?q=smiel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Suggestions []model.Tag `json:"suggestions"`
	}
	decode(t, w, &body)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "smile", body.Suggestions[0].Name)

	w = doRequest(router, "GET", "/tags/suggest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlers(t *testing.T) {
	a := setupTestApp(t, nil)
	router := setupTestRouter(t, a)

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"invalid json", "/posts", "not json", http.StatusBadRequest},
		{"empty posts", "/posts", ImportPostsRequest{}, http.StatusBadRequest},
		{"missing hash", "/posts", ImportPostsRequest{Posts: []model.PostInput{{FileSize: 1}}}, http.StatusBadRequest},
		{"bad category", "/posts", ImportPostsRequest{Posts: []model.PostInput{
			{Hash: "x1", Tags: []model.TagInput{{Name: "t", Category: "nope"}}},
		}}, http.StatusBadRequest},
		{"valid posts", "/posts", ImportPostsRequest{Posts: []model.PostInput{
			{Hash: "x1", FileSize: 10, Tags: []model.TagInput{{Name: "t"}}},
			{Hash: "x2", FileSize: 20, Tags: []model.TagInput{{Name: "t"}}},
		}}, http.StatusOK},
		{"group without members", "/groups", model.GroupInput{SourceType: "pool", SourceID: "1"}, http.StatusBadRequest},
		{"group with unknown member", "/groups", model.GroupInput{SourceType: "pool", SourceID: "1", PostHashes: []string{"zz"}}, http.StatusBadRequest},
		{"valid group", "/groups", model.GroupInput{SourceType: "pool", SourceID: "1", PostHashes: []string{"x1", "x2"}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "POST", tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, "body: %s", w.Body.String())
		})
	}

	w := doRequest(router, "GET", "/posts/search?tags=t", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body searchBody
	decode(t, w, &body)
	assert.Equal(t, 2, body.Total)
}

func TestPregenerationHandlers(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/recommendations/pregeneration", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "POST", "/recommendations/pregeneration", nil)
	require.Equal(t, http.StatusAccepted, w.Code, "body: %s", w.Body.String())

	require.NoError(t, a.Recommend.WaitPregeneration(context.Background()))

	w = doRequest(router, "GET", "/recommendations/pregeneration", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Job      model.JobProgress `json:"job"`
		Progress float64           `json:"progress"`
	}
	decode(t, w, &status)
	testutil.AssertJobCompleted(t, status.Job)
	assert.Equal(t, 100.0, status.Progress)

	w = doRequest(router, "DELETE", "/recommendations/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cleared struct {
		Cleared int64 `json:"cleared"`
	}
	decode(t, w, &cleared)
	assert.Positive(t, cleared.Cleared)
}

func TestStatsAndCacheReset(t *testing.T) {
	a := setupTestApp(t, nil)
	seedApp(t, a)
	router := setupTestRouter(t, a)

	w := doRequest(router, "GET", "/stats?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.CorpusStats
	decode(t, w, &stats)
	assert.Equal(t, 6, stats.Posts)
	assert.Equal(t, 2, stats.MergedGroups)

	doRequest(router, "GET", "/posts/search?tags=solo", nil)
	assert.NotZero(t, a.CacheSizes()["search_results"])

	w = doRequest(router, "POST", "/caches/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, a.CacheSizes()["search_results"])
}

func TestRateLimiting(t *testing.T) {
	a := setupTestApp(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Requests = 2
	})
	router := setupTestRouter(t, a)

	for i := 0; i < 2; i++ {
		w := doRequest(router, "GET", "/tags/wildcard/validate?pattern=ab*", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(router, "GET", "/tags/wildcard/validate?pattern=ab*", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	var apiErr APIError
	decode(t, w, &apiErr)
	assert.Equal(t, ErrorCodeRateLimited, apiErr.Code)

	w = doRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is never limited")
}

func TestCORSPreflight(t *testing.T) {
	a := setupTestApp(t, nil)
	router := setupTestRouter(t, a)

	w := doRequest(router, "OPTIONS", "/posts/search", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
