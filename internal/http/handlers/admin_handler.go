package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roadassist/internal/modules/matching"
	"roadassist/internal/modules/request"
	"roadassist/internal/types"
)

// AdminHandler exposes the operator surface: manual assignment, status
// override and the pending queue.
type AdminHandler struct {
	requests *request.Service
	matching *matching.Service
}

func NewAdminHandler(requests *request.Service, matchingSvc *matching.Service) *AdminHandler {
	return &AdminHandler{requests: requests, matching: matchingSvc}
}

func (h *AdminHandler) Assign(c *gin.Context) {
	providerID, err := h.matching.Assign(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider_id": providerID, "status": request.StatusAccepted})
}

type forceStatusReq struct {
	Status  string `json:"status" binding:"required"`
	AdminID string `json:"admin_id" binding:"required"`
}

func (h *AdminHandler) ForceStatus(c *gin.Context) {
	var req forceStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.requests.ForceStatus(c.Request.Context(), request.ForceStatusCommand{
		RequestID: types.ID(c.Param("id")),
		Status:    request.Status(req.Status),
		AdminID:   types.ID(req.AdminID),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (h *AdminHandler) ListPending(c *gin.Context) {
	list, err := h.requests.ListPending(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]requestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toRequestResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}
