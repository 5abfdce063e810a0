package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roadassist/internal/modules/provider"
	"roadassist/internal/types"
)

type ProviderHandler struct {
	providers *provider.Service
}

func NewProviderHandler(svc *provider.Service) *ProviderHandler {
	return &ProviderHandler{providers: svc}
}

type registerProviderReq struct {
	Name         string   `json:"name" binding:"required"`
	ServiceTypes []string `json:"service_types" binding:"required,min=1,dive,oneof=towing battery tire fuel lockout"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Rating       float64  `json:"rating"`
}

func (h *ProviderHandler) Register(c *gin.Context) {
	var req registerProviderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.providers.Register(c.Request.Context(), provider.RegisterCommand{
		Name:         req.Name,
		ServiceTypes: req.ServiceTypes,
		Location:     types.Point{Lat: req.Lat, Lng: req.Lng},
		Rating:       req.Rating,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": p.ID, "status": p.Status})
}

func (h *ProviderHandler) Get(c *gin.Context) {
	p, err := h.providers.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type availabilityReq struct {
	Available *bool `json:"available" binding:"required"`
}

func (h *ProviderHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.providers.SetAvailability(c.Request.Context(), types.ID(c.Param("id")), *req.Available)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type locationReq struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

func (h *ProviderHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.providers.UpdateLocation(c.Request.Context(), types.ID(c.Param("id")), types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
