package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/http/response"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/services"
)

type ProfileHandler struct {
	profiles services.ProfileService
}

func NewProfileHandler(profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type profileRequest struct {
	UserID          *uuid.UUID `json:"user_id"`
	Description     string     `json:"description"`
	ExperienceLevel string     `json:"experience_level"`
	ScholarURL      string     `json:"scholar_url"`
}

func (r profileRequest) input() services.ProfileInput {
	return services.ProfileInput{
		Description:     r.Description,
		ExperienceLevel: r.ExperienceLevel,
		ScholarURL:      r.ScholarURL,
	}
}

// POST /api/users/profile
func (h *ProfileHandler) Create(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, errkind.Validation("profile", err))
		return
	}
	p, job, err := h.profiles.Save(dbctx.Context{Ctx: c.Request.Context()}, firstID(req.UserID), req.input())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"user_id": p.ID, "profile_status": p.Status, "job_id": job.ID})
}

// PUT /api/users/:id/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, errkind.Validation("profile", err))
		return
	}
	p, job, err := h.profiles.Update(dbctx.Context{Ctx: c.Request.Context()}, id, req.input())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"user_id": p.ID, "profile_status": p.Status, "job_id": job.ID})
}

// GET /api/users/:id/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.profiles.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, newProfileView(p))
}
