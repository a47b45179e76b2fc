package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/http/response"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/services"
)

type PaperHandler struct {
	uploads  services.UploadService
	analyses services.AnalysisService
	maxBytes int64
}

func NewPaperHandler(uploads services.UploadService, analyses services.AnalysisService, maxBytes int64) *PaperHandler {
	if maxBytes <= 0 {
		maxBytes = services.DefaultMaxUploadBytes
	}
	return &PaperHandler{uploads: uploads, analyses: analyses, maxBytes: maxBytes}
}

// POST /api/upload
func (h *PaperHandler) Upload(c *gin.Context) {
	// Leave room for the multipart envelope; the service enforces the
	// exact file limit.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondAPIError(c, errkind.Validationf("upload", "file exceeds %d MB", h.maxBytes>>20))
			return
		}
		response.RespondAPIError(c, errkind.Validationf("upload", "no file provided"))
		return
	}
	if fh.Size > h.maxBytes {
		response.RespondAPIError(c, errkind.Validationf("upload", "file exceeds %d MB", h.maxBytes>>20))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	defer f.Close()

	res, err := h.uploads.Upload(dbctx.Context{Ctx: c.Request.Context()}, services.UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"paper_id":    res.Paper.ID,
		"analysis_id": res.Analysis.ID,
		"filename":    res.Paper.Filename,
		"title":       res.Paper.Title,
		"page_count":  res.Paper.PageCount,
		"size_bytes":  res.Paper.SizeBytes,
		"status":      res.Analysis.Status,
		"message":     "File uploaded successfully",
	})
}

// GET /api/papers
func (h *PaperHandler) ListPapers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	papers, err := h.analyses.ListPapers(dbctx.Context{Ctx: c.Request.Context()}, limit, offset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"papers": papers, "total": len(papers)})
}

// GET /api/papers/:id/analyses
func (h *PaperHandler) ListAnalyses(c *gin.Context) {
	paperID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.analyses.ListAnalyses(dbctx.Context{Ctx: c.Request.Context()}, paperID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"paper_id": paperID, "analyses": list, "total": len(list)})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}
