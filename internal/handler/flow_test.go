package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorzzz/advisor-api/internal/flow"
	"github.com/connectorzzz/advisor-api/internal/repository"
	"github.com/connectorzzz/advisor-api/internal/service"
)

func flowRouter(h *FlowHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/flows", h.Create)
	r.GET("/flows/:id", h.Get)
	r.POST("/flows/:id/submit", h.Submit)
	r.POST("/flows/:id/cover-letter", h.CoverLetter)
	r.POST("/flows/:id/fix-cv", h.FixCV)
	r.POST("/flows/:id/back", h.Back)
	r.POST("/flows/:id/reset", h.Reset)
	return r
}

func decodeSnapshot(t *testing.T, body *bytes.Buffer) flow.Snapshot {
	t.Helper()
	var snap flow.Snapshot
	require.NoError(t, json.Unmarshal(body.Bytes(), &snap))
	return snap
}

func getSnapshot(t *testing.T, r *gin.Engine, id string) flow.Snapshot {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/flows/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	return decodeSnapshot(t, w.Body)
}

// webhookDouble answers all three advisor endpoints.
func webhookDouble() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "cover"):
			w.Write([]byte(`{"cover_letter": "Dear Hiring Manager,"}`))
		case strings.Contains(r.URL.Path, "improve"):
			w.Write([]byte(`[{"gap_analysis": "Missing Java.", "improvements": [{"title": "Add Java", "description": "List projects."}]}]`))
		default:
			w.Write([]byte(`{"match_percentage": 70, "recommendation": "Maybe", "explanation": "Partial fit."}`))
		}
	}))
}

func newFlowFixture(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	srv := webhookDouble()
	t.Cleanup(srv.Close)

	client := service.NewAdvisorClient(srv.URL+"/analyze", srv.URL+"/cover", srv.URL+"/improve")
	h := NewFlowHandler(repository.NewFlowRepo(time.Hour), client, &recordingTracker{})
	r := flowRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	snap := decodeSnapshot(t, w.Body)
	assert.Equal(t, flow.ScreenInput, snap.Screen)
	return r, snap.ID
}

func submitFlow(t *testing.T, r *gin.Engine, id string) flow.Snapshot {
	t.Helper()
	body, ct := advisorForm(t, "resume.pdf", pdfBytes(), "Backend Engineer role requiring Java")
	w := postForm(r, "/flows/"+id+"/submit", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	return decodeSnapshot(t, w.Body)
}

func TestFlowSubmitMovesToResult(t *testing.T) {
	r, id := newFlowFixture(t)

	snap := submitFlow(t, r, id)
	assert.Equal(t, flow.ScreenResult, snap.Screen)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 70, snap.Result.MatchPercentage)
	assert.True(t, snap.WorthApplying)
}

func TestFlowCoverLetterResolvesInBackground(t *testing.T) {
	r, id := newFlowFixture(t)
	submitFlow(t, r, id)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows/"+id+"/cover-letter", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	snap := decodeSnapshot(t, w.Body)
	assert.Equal(t, flow.ScreenCoverLetter, snap.Screen, "transition happens before the fetch")

	require.Eventually(t, func() bool {
		s := getSnapshot(t, r, id)
		return !s.Pending && s.CoverLetter != ""
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, "Dear Hiring Manager,", getSnapshot(t, r, id).CoverLetter)
}

func TestFlowFixCVNormalizesWrappedResponse(t *testing.T) {
	r, id := newFlowFixture(t)
	submitFlow(t, r, id)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows/"+id+"/fix-cv", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		s := getSnapshot(t, r, id)
		return !s.Pending && s.Improvements != nil
	}, 5*time.Second, 20*time.Millisecond)

	snap := getSnapshot(t, r, id)
	assert.Equal(t, "Missing Java.", snap.Improvements.GapAnalysis)
	require.Len(t, snap.Improvements.Improvements, 1)
	assert.Equal(t, "Add Java", snap.Improvements.Improvements[0].Title)
}

func TestFlowSecondaryScreenWithoutResultIsRejected(t *testing.T) {
	r, id := newFlowFixture(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows/"+id+"/cover-letter", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFlowResetReturnsToPristineInput(t *testing.T) {
	r, id := newFlowFixture(t)
	submitFlow(t, r, id)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows/"+id+"/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeSnapshot(t, w.Body)
	assert.Equal(t, flow.ScreenInput, snap.Screen)
	assert.False(t, snap.HasCV)
	assert.Empty(t, snap.JobDescription)
	assert.Nil(t, snap.Result)
}

func TestFlowBackPreservesResult(t *testing.T) {
	r, id := newFlowFixture(t)
	submitFlow(t, r, id)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows/"+id+"/fix-cv", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/flows/"+id+"/back", nil))
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeSnapshot(t, w.Body)
	assert.Equal(t, flow.ScreenResult, snap.Screen)
	require.NotNil(t, snap.Result)
	assert.True(t, snap.HasCV)
}

func TestFlowUnknownIDReturns404(t *testing.T) {
	r, _ := newFlowFixture(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/flows/00000000-0000-0000-0000-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
