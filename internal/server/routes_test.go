package server

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

var testJWTSecret = []byte("test-secret")

func testBearerToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testJWTSecret)
	require.NoError(t, err)
	return signed
}

func newTestServer() (*Server, *fakeQueue, *fakeCoordinator, *fakeCredit, *fakeIndex) {
	queue := newFakeQueue()
	coord := &fakeCoordinator{stats: interfaces.QueueStats{ActiveWorkers: 2}}
	credit := &fakeCredit{balances: make(map[string]*big.Int)}
	index := newFakeIndex()

	s := &Server{
		deps: Deps{
			Queue:       queue,
			Coordinator: coord,
			Credit:      credit,
			Index:       index,
			Hub:         NewJobWSHub(nil),
		},
		logger: common.NewSilentLogger(),
	}
	mux := http.NewServeMux()
	s.registerRoutes(mux, testJWTSecret)
	s.server = &http.Server{Handler: mux}
	return s, queue, coord, credit, index
}

func TestHandleHealth_NoAuthRequired(t *testing.T) {
	s, _, _, _, _ := newTestServer()
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleJobSubmit_RejectsMissingBearerToken(t *testing.T) {
	s, _, _, _, _ := newTestServer()
	body, _ := json.Marshal(map[string]any{"job_type": "http_crawl"})
	r := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleJobSubmit_RejectsInvalidBearerToken(t *testing.T) {
	s, _, _, _, _ := newTestServer()
	body, _ := json.Marshal(map[string]any{"job_type": "http_crawl"})
	r := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer not-a-real-token")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleJobSubmit_EnqueuesWithValidToken(t *testing.T) {
	s, queue, _, _, _ := newTestServer()
	body, _ := json.Marshal(map[string]any{"job_type": "http_crawl", "config": map[string]string{"url": "https://example.com"}})
	r := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+testBearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, queue.jobs, 1)
}

func TestHandleJobSubmit_InsufficientCreditsReturns402(t *testing.T) {
	s, _, _, credit, index := newTestServer()
	index.accounts["user-1"] = &models.CreditAccount{UserID: "user-1", OnChainAddress: "0xabc"}
	credit.balances["0xabc"] = big.NewInt(1)

	body, _ := json.Marshal(map[string]any{"job_type": "http_crawl"})
	r := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+testBearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())
}

func TestHandleJobByID_NotFoundReturns404(t *testing.T) {
	s, _, _, _, _ := newTestServer()
	r := httptest.NewRequest(http.MethodGet, "/api/jobs/does-not-exist", nil)
	r.Header.Set("Authorization", "Bearer "+testBearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleJobByID_ReturnsJob(t *testing.T) {
	s, queue, _, _, _ := newTestServer()
	queue.jobs["job-1"] = &models.Job{ID: "job-1", UserID: "user-1", JobType: models.JobTypeHttpCrawl}

	r := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	r.Header.Set("Authorization", "Bearer "+testBearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "job-1", got.ID)
}

func TestHandleJobList_ReturnsOnlyCallersJobs(t *testing.T) {
	s, queue, _, _, _ := newTestServer()
	queue.jobs["job-1"] = &models.Job{ID: "job-1", UserID: "user-1"}
	queue.jobs["job-2"] = &models.Job{ID: "job-2", UserID: "user-2"}

	r := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	r.Header.Set("Authorization", "Bearer "+testBearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got []*models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "job-1", got[0].ID)
}

func TestHandleQueueStats_ReturnsCoordinatorSnapshot(t *testing.T) {
	s, _, _, _, _ := newTestServer()
	r := httptest.NewRequest(http.MethodGet, "/api/queue/stats", nil)
	r.Header.Set("Authorization", "Bearer "+testBearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got interfaces.QueueStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.ActiveWorkers)
}
