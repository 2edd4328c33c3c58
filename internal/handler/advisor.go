package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/model"
	"github.com/connectorzzz/advisor-api/internal/service"
)

const maxCVSize = 10 * 1024 * 1024

// AdvisorHandler exposes the three document-analysis calls as stateless
// endpoints. The guided screen flow in FlowHandler layers on top of the
// same client.
type AdvisorHandler struct {
	advisor *service.AdvisorClient
	tracker service.Tracker
}

func NewAdvisorHandler(advisor *service.AdvisorClient, tracker service.Tracker) *AdvisorHandler {
	return &AdvisorHandler{advisor: advisor, tracker: tracker}
}

// Analyze handles POST /analyze
// Accepts multipart cv + job_description, proxies the analysis webhook and
// fires a usage event on success.
func (h *AdvisorHandler) Analyze(c *gin.Context) {
	cv, jobDescription, ok := readAdvisorForm(c)
	if !ok {
		return
	}

	result, err := h.advisor.Analyze(c.Request.Context(), cv, jobDescription)
	if err != nil {
		log.Error().Err(err).Msg("Analysis call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// Fire-and-forget; a dropped event never fails the request.
	h.tracker.Track(c.Request.Context(), service.EventAnalyzeApplication, map[string]any{
		"category":         "advisor",
		"label":            result.Recommendation,
		"match_percentage": result.MatchPercentage,
		"tier":             string(model.MatchTier(result.MatchPercentage)),
	})

	c.JSON(http.StatusOK, gin.H{
		"match_percentage": result.MatchPercentage,
		"recommendation":   result.Recommendation,
		"explanation":      result.Explanation,
		"tier":             model.MatchTier(result.MatchPercentage),
		"worth_applying":   model.WorthApplying(result.MatchPercentage),
	})
}

// CoverLetter handles POST /cover-letter
func (h *AdvisorHandler) CoverLetter(c *gin.Context) {
	cv, jobDescription, ok := readAdvisorForm(c)
	if !ok {
		return
	}

	letter, err := h.advisor.GenerateCoverLetter(c.Request.Context(), cv, jobDescription)
	if err != nil {
		log.Error().Err(err).Msg("Cover letter call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.tracker.Track(c.Request.Context(), service.EventGenerateCoverLetter, map[string]any{
		"category": "advisor",
	})

	c.JSON(http.StatusOK, gin.H{"cover_letter": letter})
}

// ImproveCV handles POST /improve-cv
func (h *AdvisorHandler) ImproveCV(c *gin.Context) {
	cv, jobDescription, ok := readAdvisorForm(c)
	if !ok {
		return
	}

	set, err := h.advisor.ImproveCV(c.Request.Context(), cv, jobDescription)
	if err != nil {
		log.Error().Err(err).Msg("CV improvement call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.tracker.Track(c.Request.Context(), service.EventImproveCV, map[string]any{
		"category":     "advisor",
		"improvements": len(set.Improvements),
	})

	c.JSON(http.StatusOK, set)
}

// ── Upload handling ──────────────────────────────────

// readAdvisorForm pulls the cv file and job_description out of the request,
// validating the upload before anything is forwarded to a webhook. On
// failure it writes the response itself and returns ok=false.
func readAdvisorForm(c *gin.Context) (service.CVUpload, string, bool) {
	jobDescription := strings.TrimSpace(c.PostForm("job_description"))

	file, header, err := c.Request.FormFile("cv")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CV file is required"})
		return service.CVUpload{}, "", false
	}
	defer file.Close()

	if jobDescription == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A job description is required"})
		return service.CVUpload{}, "", false
	}

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
		return service.CVUpload{}, "", false
	}

	if header.Size > maxCVSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 10MB."})
		return service.CVUpload{}, "", false
	}

	data, err := io.ReadAll(io.LimitReader(file, maxCVSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded CV")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return service.CVUpload{}, "", false
	}

	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded CV is empty"})
		return service.CVUpload{}, "", false
	}

	// Magic bytes: a PDF starts with %PDF
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid PDF file"})
		return service.CVUpload{}, "", false
	}

	// Sanity-check readability so users hear about a scanned/corrupted CV
	// from us, not from a cryptic workflow failure downstream.
	if textLen, err := pdfTextLength(data); err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("Uploaded CV failed text extraction")
	} else {
		log.Info().Str("filename", header.Filename).Int("bytes", len(data)).Int("textLen", textLen).Msg("CV upload accepted")
	}

	return service.CVUpload{Filename: header.Filename, Data: data}, jobDescription, true
}

// pdfTextLength reports how much text the PDF yields.
func pdfTextLength(data []byte) (int, error) {
	// ledongthuc/pdf wants a file on disk
	tmpFile, err := os.CreateTemp("", "cv-*.pdf")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.Write(data); err != nil {
		return 0, fmt.Errorf("writing temp file: %w", err)
	}

	f, reader, err := pdf.Open(tmpFile.Name())
	if err != nil {
		return 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	total := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		total += len(text)
	}

	return total, nil
}
