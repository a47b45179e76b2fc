package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/http/response"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/services"
)

type AnalysisHandler struct {
	analyses services.AnalysisService
}

func NewAnalysisHandler(analyses services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses}
}

type analyzeRequest struct {
	PaperID    *uuid.UUID `json:"paper_id"`
	AnalysisID *uuid.UUID `json:"analysis_id"`
	// JobID is accepted as an alias of analysis_id for older clients.
	JobID  *uuid.UUID `json:"job_id"`
	Topics []string   `json:"topics"`
	UserID *uuid.UUID `json:"user_id"`
}

type searchRequest struct {
	AnalysisID    *uuid.UUID `json:"analysis_id"`
	JobID         *uuid.UUID `json:"job_id"`
	SelectedIdeas []int      `json:"selected_ideas"`
}

func firstID(ids ...*uuid.UUID) *uuid.UUID {
	for _, id := range ids {
		if id != nil && *id != uuid.Nil {
			return id
		}
	}
	return nil
}

// POST /api/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, errkind.Validation("analyze", err))
		return
	}
	in := services.AnalyzeInput{
		AnalysisID: firstID(req.AnalysisID, req.JobID),
		Topics:     req.Topics,
		UserID:     firstID(req.UserID),
	}
	if req.PaperID != nil {
		in.PaperID = *req.PaperID
	}
	a, job, err := h.analyses.Analyze(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"analysis_id": a.ID,
		"paper_id":    a.PaperID,
		"job_id":      job.ID,
		"status":      a.Status,
	})
}

// POST /api/search
func (h *AnalysisHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, errkind.Validation("search", err))
		return
	}
	id := firstID(req.AnalysisID, req.JobID)
	if id == nil {
		response.RespondAPIError(c, errkind.Validationf("search", "analysis_id is required"))
		return
	}
	a, job, err := h.analyses.Search(dbctx.Context{Ctx: c.Request.Context()}, *id, req.SelectedIdeas)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"analysis_id": a.ID,
		"job_id":      job.ID,
		"status":      a.Status,
		"selected":    len(req.SelectedIdeas),
	})
}

// GET /api/status/:id
func (h *AnalysisHandler) Status(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.analyses.GetAnalysis(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, newStatusView(a))
}

// GET /api/results/:id
func (h *AnalysisHandler) Results(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.analyses.Results(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, newResultsView(res))
}

// GET /api/analyses/:id
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.analyses.GetAnalysis(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}
