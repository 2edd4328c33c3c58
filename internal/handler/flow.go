package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/flow"
	"github.com/connectorzzz/advisor-api/internal/model"
	"github.com/connectorzzz/advisor-api/internal/repository"
	"github.com/connectorzzz/advisor-api/internal/service"
)

// secondaryFetchTimeout bounds the background cover-letter / improvement
// fetches, which outlive the HTTP request that started them.
const secondaryFetchTimeout = 2 * time.Minute

// FlowHandler drives the guided screen flow: one flow session per visit,
// stepping through input → result → {coverLetter | fixCv}. The secondary
// screens transition immediately and fetch in the background; the client
// polls the snapshot until pending clears.
type FlowHandler struct {
	flows   *repository.FlowRepo
	advisor *service.AdvisorClient
	tracker service.Tracker
}

func NewFlowHandler(flows *repository.FlowRepo, advisor *service.AdvisorClient, tracker service.Tracker) *FlowHandler {
	return &FlowHandler{flows: flows, advisor: advisor, tracker: tracker}
}

// Create handles POST /flows
func (h *FlowHandler) Create(c *gin.Context) {
	f := h.flows.Create()
	c.JSON(http.StatusCreated, f.Snapshot())
}

// Get handles GET /flows/:id
func (h *FlowHandler) Get(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.Snapshot())
}

// Submit handles POST /flows/:id/submit
// Runs the analysis synchronously: failure keeps the flow on the input
// screen with the stored inputs intact so the user can resubmit.
func (h *FlowHandler) Submit(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}

	cv, jobDescription, ok := readAdvisorForm(c)
	if !ok {
		return
	}

	gen, err := f.BeginSubmit(flow.Inputs{
		CVFilename:     cv.Filename,
		CVData:         cv.Data,
		JobDescription: jobDescription,
	})
	if err != nil {
		h.transitionError(c, err)
		return
	}

	result, err := h.advisor.Analyze(c.Request.Context(), cv, jobDescription)
	if err != nil {
		f.FailSubmit(gen)
		log.Error().Err(err).Str("flow", f.ID().String()).Msg("Analysis call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "flow": f.Snapshot()})
		return
	}

	if !f.CompleteSubmit(gen, result) {
		log.Debug().Str("flow", f.ID().String()).Msg("Discarded stale analysis completion")
		c.JSON(http.StatusConflict, gin.H{"error": "Flow was reset during analysis", "flow": f.Snapshot()})
		return
	}
	h.tracker.Track(c.Request.Context(), service.EventAnalyzeApplication, map[string]any{
		"category":         "flow",
		"label":            result.Recommendation,
		"match_percentage": result.MatchPercentage,
		"tier":             string(model.MatchTier(result.MatchPercentage)),
	})

	c.JSON(http.StatusOK, f.Snapshot())
}

// CoverLetter handles POST /flows/:id/cover-letter
// Transitions optimistically, then resolves in the background. Calling it
// again while on the cover-letter screen retries the fetch.
func (h *FlowHandler) CoverLetter(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}

	gen, err := f.StartCoverLetter()
	if err != nil {
		h.transitionError(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), secondaryFetchTimeout)
		defer cancel()

		in := f.Inputs()
		letter, callErr := h.advisor.GenerateCoverLetter(ctx, service.CVUpload{
			Filename: in.CVFilename,
			Data:     in.CVData,
		}, in.JobDescription)

		if !f.FinishCoverLetter(gen, letter, callErr) {
			log.Debug().Str("flow", f.ID().String()).Msg("Discarded stale cover letter completion")
			return
		}
		if callErr != nil {
			log.Error().Err(callErr).Str("flow", f.ID().String()).Msg("Cover letter call failed")
			return
		}
		h.tracker.Track(ctx, service.EventGenerateCoverLetter, map[string]any{"category": "flow"})
	}()

	c.JSON(http.StatusAccepted, f.Snapshot())
}

// FixCV handles POST /flows/:id/fix-cv
// Same optimistic pattern; re-invoking while on the screen is the manual
// retry action.
func (h *FlowHandler) FixCV(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}

	gen, err := f.StartFixCV()
	if err != nil {
		h.transitionError(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), secondaryFetchTimeout)
		defer cancel()

		in := f.Inputs()
		set, callErr := h.advisor.ImproveCV(ctx, service.CVUpload{
			Filename: in.CVFilename,
			Data:     in.CVData,
		}, in.JobDescription)

		if !f.FinishFixCV(gen, set, callErr) {
			log.Debug().Str("flow", f.ID().String()).Msg("Discarded stale improvement completion")
			return
		}
		if callErr != nil {
			log.Error().Err(callErr).Str("flow", f.ID().String()).Msg("CV improvement call failed")
			return
		}
		h.tracker.Track(ctx, service.EventImproveCV, map[string]any{"category": "flow"})
	}()

	c.JSON(http.StatusAccepted, f.Snapshot())
}

// Back handles POST /flows/:id/back
func (h *FlowHandler) Back(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}

	if err := f.Back(); err != nil {
		h.transitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, f.Snapshot())
}

// Reset handles POST /flows/:id/reset
func (h *FlowHandler) Reset(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}

	f.Reset()
	c.JSON(http.StatusOK, f.Snapshot())
}

// ── Helpers ──────────────────────────────────────────

func (h *FlowHandler) find(c *gin.Context) (*flow.Flow, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flow ID"})
		return nil, false
	}

	f := h.flows.Find(id)
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found or expired"})
		return nil, false
	}
	return f, true
}

func (h *FlowHandler) transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, flow.ErrMissingInputs),
		errors.Is(err, flow.ErrNoResult),
		errors.Is(err, flow.ErrBadTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
