package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/paperlens-backend/internal/http/response"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/realtime"
	"github.com/yungbote/paperlens-backend/internal/services"
)

type RealtimeHandler struct {
	Log      *logger.Logger
	Hub      *realtime.SSEHub
	analyses services.AnalysisService
	profiles services.ProfileService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, analyses services.AnalysisService, profiles services.ProfileService) *RealtimeHandler {
	return &RealtimeHandler{
		Log:      log.With("handler", "RealtimeHandler"),
		Hub:      hub,
		analyses: analyses,
		profiles: profiles,
	}
}

// GET /api/analyses/:id/events
//
// The first event is always the current analysis_status so a client that
// connects late does not wait for the next transition.
func (h *RealtimeHandler) AnalysisEvents(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.analyses.GetAnalysis(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.stream(c, id.String(), realtime.SSEMessage{
		Channel: id.String(),
		Event:   realtime.SSEEventAnalysisStatus,
		Data:    newStatusView(a),
	})
}

// GET /api/users/:id/events
func (h *RealtimeHandler) ProfileEvents(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.profiles.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.stream(c, id.String(), realtime.SSEMessage{
		Channel: id.String(),
		Event:   realtime.SSEEventProfileStatus,
		Data:    gin.H{"user_id": p.ID, "profile_status": p.Status, "error": p.Error},
	})
}

func (h *RealtimeHandler) stream(c *gin.Context, channel string, first realtime.SSEMessage) {
	client := h.Hub.NewSSEClient()
	h.Hub.AddChannel(client, channel)
	client.Send(first)
	h.Log.Debug("SSE stream open", "client_id", client.ID, "channel", channel)

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	h.Log.Debug("SSE stream closed", "client_id", client.ID, "channel", channel)
}
