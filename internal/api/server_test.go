package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/doctor/config"
	"example.com/backstage/services/doctor/internal/database"
	"example.com/backstage/services/doctor/internal/metrics"
	"example.com/backstage/services/doctor/internal/mirror"
	"example.com/backstage/services/doctor/internal/models"
	"example.com/backstage/services/doctor/internal/paging"
	"example.com/backstage/services/doctor/internal/registry"
)

// memIndex is an in-memory search index understanding "id:<n>" and "*"
type memIndex[E any] struct {
	mu       sync.Mutex
	docs     map[int64]E
	idOf     func(*E) int64
	fail     bool
	deletes  int
	lastSort []paging.SortOrder
}

func newMemIndex[E any](idOf func(*E) int64) *memIndex[E] {
	return &memIndex[E]{docs: map[int64]E{}, idOf: idOf}
}

func (m *memIndex[E]) Upsert(_ context.Context, id int64, doc *E) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cluster unavailable")
	}
	m.docs[id] = *doc
	return nil
}

func (m *memIndex[E]) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cluster unavailable")
	}
	m.deletes++
	delete(m.docs, id)
	return nil
}

func (m *memIndex[E]) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = map[int64]E{}
	return nil
}

func (m *memIndex[E]) Search(_ context.Context, query string, page paging.PageRequest) ([]E, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSort = page.Sort

	var hits []E
	if strings.HasPrefix(query, "id:") {
		id, err := strconv.ParseInt(strings.TrimPrefix(query, "id:"), 10, 64)
		if err != nil {
			return nil, 0, err
		}
		if doc, ok := m.docs[id]; ok {
			hits = append(hits, doc)
		}
	} else {
		for _, doc := range m.docs {
			hits = append(hits, doc)
		}
		sort.Slice(hits, func(i, j int) bool { return m.idOf(&hits[i]) < m.idOf(&hits[j]) })
	}

	total := int64(len(hits))
	from := page.Offset()
	if from > len(hits) {
		from = len(hits)
	}
	to := from + page.Size
	if to > len(hits) {
		to = len(hits)
	}
	return hits[from:to], total, nil
}

func (m *memIndex[E]) has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

type testEnv struct {
	router   *gin.Engine
	replies  *memIndex[models.Reply]
	reviews  *memIndex[models.Review]
	settings *memIndex[models.PaymentSettings]
	registry *registry.Registry
}

func newTestEnv(t *testing.T, opts mirror.Options) *testEnv {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	env := &testEnv{
		replies:  newMemIndex(func(r *models.Reply) int64 { return r.ID }),
		reviews:  newMemIndex(func(r *models.Review) int64 { return r.ID }),
		settings: newMemIndex(func(p *models.PaymentSettings) int64 { return p.ID }),
	}
	if opts.MaxAttempts == 0 {
		opts = mirror.Options{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	}

	m := metrics.NewMetrics()
	env.registry = registry.New(db, registry.Indexes{
		Replies:         env.replies,
		Reviews:         env.reviews,
		PaymentSettings: env.settings,
	}, nil, m, nil, opts)

	cfg := config.Config{
		AppName: "doctorApp",
		Server:  config.ServerConfig{Mode: gin.TestMode, CorsEnabled: true, CorsOrigins: []string{"*"}},
	}
	checks := map[string]HealthCheck{
		metrics.HealthDatabase: func(*gin.Context) error { return database.Ping(db) },
	}
	env.router = NewServer(cfg, env.registry, m, nil, checks).Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateReply(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/replies/1", w.Header().Get("Location"))
	assert.Equal(t, "doctorApp.doctorReply.created", w.Header().Get("X-doctorApp-alert"))
	assert.Equal(t, "1", w.Header().Get("X-doctorApp-params"))

	created := decode[models.ReplyDTO](t, w)
	require.NotNil(t, created.ID)
	assert.Equal(t, "AAAAAAAAAA", created.Reply)
	assert.True(t, env.replies.has(1), "created record is searchable")
}

func TestCreateReplyWithExistingID(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPost, "/api/replies", map[string]interface{}{"id": 1, "reply": "AAAAAAAAAA"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.idexists", w.Header().Get("X-doctorApp-error"))
	assert.Equal(t, "doctorReply", w.Header().Get("X-doctorApp-params"))

	body := decode[ErrorResponse](t, w)
	assert.Equal(t, "idexists", body.ErrorKey)
	assert.Equal(t, "A new reply cannot already have an ID", body.Title)
	assert.Equal(t, "error.idexists", body.Message)

	list := env.do(t, http.MethodGet, "/api/replies", nil)
	assert.Equal(t, "0", list.Header().Get("X-Total-Count"))
	assert.False(t, env.replies.has(1))
}

func TestGetAllReplies(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "BBBBBBBBBB"})

	w := env.do(t, http.MethodGet, "/api/replies?sort=id,desc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
	list := decode[[]models.ReplyDTO](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), *list[0].ID)
	assert.Equal(t, "BBBBBBBBBB", list[0].Reply)
}

func TestGetReplyAndNonExisting(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	w := env.do(t, http.MethodGet, "/api/replies/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AAAAAAAAAA", decode[models.ReplyDTO](t, w).Reply)

	w = env.do(t, http.MethodGet, "/api/replies/9223372036854775807", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/replies/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateReply(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	id := int64(1)
	w := env.do(t, http.MethodPut, "/api/replies", models.ReplyDTO{ID: &id, Reply: "BBBBBBBBBB"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "doctorApp.doctorReply.updated", w.Header().Get("X-doctorApp-alert"))
	assert.Equal(t, "BBBBBBBBBB", decode[models.ReplyDTO](t, w).Reply)

	w = env.do(t, http.MethodGet, "/api/replies/1", nil)
	assert.Equal(t, "BBBBBBBBBB", decode[models.ReplyDTO](t, w).Reply)

	w = env.do(t, http.MethodGet, "/api/_search/replies?query=id:1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hits := decode[[]models.ReplyDTO](t, w)
	require.Len(t, hits, 1)
	assert.Equal(t, "BBBBBBBBBB", hits[0].Reply)
}

func TestUpdateNonExistingReply(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPut, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.idnull", w.Header().Get("X-doctorApp-error"))

	missing := int64(77)
	w = env.do(t, http.MethodPut, "/api/replies", models.ReplyDTO{ID: &missing, Reply: "AAAAAAAAAA"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.replies.has(77))
}

func TestDeleteReply(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	w := env.do(t, http.MethodDelete, "/api/replies/1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doctorApp.doctorReply.deleted", w.Header().Get("X-doctorApp-alert"))
	assert.Equal(t, "1", w.Header().Get("X-doctorApp-params"))
	assert.Equal(t, 1, env.replies.deletes)
	assert.False(t, env.replies.has(1))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/replies/1", nil).Code)

	w = env.do(t, http.MethodDelete, "/api/replies/1", nil)
	assert.Equal(t, http.StatusOK, w.Code, "deleting twice succeeds")
}

func TestSearchReply(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	w := env.do(t, http.MethodGet, "/api/_search/replies?query=id:1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
	assert.Contains(t, w.Header().Get("Link"), `</api/_search/replies?page=0&size=20&query=id%3A1>; rel="first"`)

	hits := decode[[]models.ReplyDTO](t, w)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), *hits[0].ID)

	w = env.do(t, http.MethodGet, "/api/_search/replies", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.querynull", w.Header().Get("X-doctorApp-error"))
}

func TestPaginationLinks(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	for i := 0; i < 3; i++ {
		env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})
	}

	w := env.do(t, http.MethodGet, "/api/replies?page=1&size=1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
	assert.Equal(t,
		`</api/replies?page=2&size=1>; rel="next",`+
			`</api/replies?page=0&size=1>; rel="prev",`+
			`</api/replies?page=2&size=1>; rel="last",`+
			`</api/replies?page=0&size=1>; rel="first"`,
		w.Header().Get("Link"))

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/replies?page=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/replies?sort=secret,asc", nil).Code)
}

func TestReviewDatesRoundTrip(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{
		"userName":   "AAAAAAAAAA",
		"review":     "AAAAAAAAAA",
		"reviewedOn": "1970-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "doctorApp.doctorReview.created", w.Header().Get("X-doctorApp-alert"))

	today := models.NewLocalDate(time.Now().UTC())
	w = env.do(t, http.MethodPut, "/api/reviews", map[string]interface{}{
		"id":         1,
		"userName":   "BBBBBBBBBB",
		"review":     "BBBBBBBBBB",
		"reviewedOn": today.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/reviews/1", nil)
	got := decode[map[string]interface{}](t, w)
	assert.Equal(t, today.String(), got["reviewedOn"])
	assert.Equal(t, "BBBBBBBBBB", got["userName"])

	w = env.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"reviewedOn": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentSettingsValidation(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPost, "/api/payment-settings", models.PaymentSettingsDTO{Currency: "usd", Amount: 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.validation", w.Header().Get("X-doctorApp-error"))
	assert.Contains(t, decode[ErrorResponse](t, w).Title, "currency")

	w = env.do(t, http.MethodPost, "/api/payment-settings", models.PaymentSettingsDTO{
		IsPaymentEnabled: true,
		Amount:           250,
		Currency:         "INR",
		PaymentMethod:    "card",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/payment-settings/1", w.Header().Get("Location"))
	assert.True(t, env.settings.has(1))
}

func TestIndexOutageWithPropagation(t *testing.T) {
	env := newTestEnv(t, mirror.Options{
		MaxAttempts:     2,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      time.Millisecond,
		PropagateErrors: true,
	})
	env.replies.fail = true

	w := env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error.indexsync", w.Header().Get("X-doctorApp-error"))

	// the primary write stays committed
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/replies/1", nil).Code)

	env.replies.mu.Lock()
	env.replies.fail = false
	env.replies.mu.Unlock()

	require.NoError(t, env.registry.Reconciler(10).DrainFailures(context.Background()))
	assert.True(t, env.replies.has(1))
}

func TestIndexOutageSwallowedByDefault(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.replies.fail = true

	w := env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})
	require.Equal(t, http.StatusCreated, w.Code)

	pending, err := env.registry.Failures.FindUnresolved(context.Background(), registry.ReplyName, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]interface{}](t, w)
	assert.Equal(t, true, health["status"])

	w = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[map[string]interface{}](t, w)
	counters := all["counters"].(map[string]interface{})
	assert.Equal(t, float64(1), counters[metrics.CounterIndexWrites])
}

func TestCORSAndRequestID(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodOptions, "/api/replies", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-doctorApp-alert")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestReplyLifecycleKeepsListInStep(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := *decode[models.ReplyDTO](t, w).ID
	path := "/api/replies/" + strconv.FormatInt(id, 10)

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AAAAAAAAAA", decode[models.ReplyDTO](t, w).Reply)

	w = env.do(t, http.MethodGet, "/api/replies", nil)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))

	w = env.do(t, http.MethodPut, "/api/replies", models.ReplyDTO{ID: &id, Reply: "BBBBBBBBBB"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, "BBBBBBBBBB", decode[models.ReplyDTO](t, w).Reply)

	w = env.do(t, http.MethodGet, "/api/replies", nil)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"), "update keeps the list size")
	list := decode[[]models.ReplyDTO](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "BBBBBBBBBB", list[0].Reply)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, path, nil).Code)

	w = env.do(t, http.MethodGet, "/api/replies", nil)
	assert.Equal(t, "0", w.Header().Get("X-Total-Count"), "delete shrinks the list by one")
	for _, r := range decode[[]models.ReplyDTO](t, w) {
		assert.NotEqual(t, id, *r.ID)
	}
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, nil).Code)

	w = env.do(t, http.MethodGet, "/api/_search/replies?query=id:"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, "0", w.Header().Get("X-Total-Count"))
}

func TestReviewWithoutDate(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})

	w := env.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{
		"userName":   "AAAAAAAAAA",
		"review":     "AAAAAAAAAA",
		"reviewedOn": nil,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]interface{}](t, w)
	assert.Contains(t, created, "reviewedOn")
	assert.Nil(t, created["reviewedOn"])

	w = env.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{
		"userName": "BBBBBBBBBB",
		"review":   "BBBBBBBBBB",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, decode[map[string]interface{}](t, w)["reviewedOn"])

	for _, path := range []string{"/api/reviews/1", "/api/reviews/2"} {
		w = env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[map[string]interface{}](t, w)
		assert.Nil(t, got["reviewedOn"], path)
	}
}

func TestSearchSortTranslatesToIndexFields(t *testing.T) {
	env := newTestEnv(t, mirror.Options{})
	env.do(t, http.MethodPost, "/api/replies", models.ReplyDTO{Reply: "AAAAAAAAAA"})

	w := env.do(t, http.MethodGet, "/api/_search/replies?query=*&sort=reply,asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.replies.mu.Lock()
	got := env.replies.lastSort
	env.replies.mu.Unlock()
	assert.Equal(t, []paging.SortOrder{{Field: "reply.keyword", Direction: paging.Asc}}, got)

	w = env.do(t, http.MethodGet, "/api/_search/replies?query=*&sort=secret,asc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.sortinvalid", w.Header().Get("X-doctorApp-error"))
}
