package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roadassist/internal/modules/request"
	"roadassist/internal/types"
)

type RequestHandler struct {
	requests *request.Service
}

func NewRequestHandler(svc *request.Service) *RequestHandler {
	return &RequestHandler{requests: svc}
}

type vehicleReq struct {
	Make  string `json:"make" binding:"required"`
	Model string `json:"model" binding:"required"`
	Year  string `json:"year"`
	Color string `json:"color"`
}

type createRequestReq struct {
	UserID      string `json:"user_id" binding:"required"`
	ServiceType string `json:"service_type" binding:"required,oneof=towing battery tire fuel lockout"`
	Address     string `json:"address"`
	// Lat/Lng are pointers so that an omitted coordinate is distinguishable
	// from a genuine 0: absent coordinates mean "geocode the address".
	Lat     *float64   `json:"lat"`
	Lng     *float64   `json:"lng"`
	Vehicle vehicleReq `json:"vehicle" binding:"required"`
}

type requestResponse struct {
	ID          types.ID         `json:"id"`
	UserID      types.ID         `json:"user_id"`
	ProviderID  *types.ID        `json:"provider_id,omitempty"`
	ServiceType string           `json:"service_type"`
	Status      string           `json:"status"`
	Location    request.Location `json:"location"`
	Vehicle     request.Vehicle  `json:"vehicle"`
	Amount      *types.Money     `json:"amount,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toRequestResponse(r *request.Request) requestResponse {
	return requestResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		ProviderID:  r.ProviderID,
		ServiceType: string(r.ServiceType),
		Status:      string(r.Status),
		Location:    r.Location,
		Vehicle:     r.Vehicle,
		Amount:      r.Amount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeError(c, http.StatusBadRequest, "lat and lng must be provided together")
		return
	}
	var point *types.Point
	if req.Lat != nil {
		point = &types.Point{Lat: *req.Lat, Lng: *req.Lng}
	}
	r, err := h.requests.Create(c.Request.Context(), request.CreateCommand{
		UserID:      types.ID(req.UserID),
		ServiceType: request.ServiceType(req.ServiceType),
		Address:     req.Address,
		Point:       point,
		Vehicle: request.Vehicle{
			Make:  req.Vehicle.Make,
			Model: req.Vehicle.Model,
			Year:  req.Vehicle.Year,
			Color: req.Vehicle.Color,
		},
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRequestResponse(r))
}

func (h *RequestHandler) Get(c *gin.Context) {
	r, err := h.requests.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(r))
}

type cancelRequestReq struct {
	UserID string `json:"user_id" binding:"required"`
	Reason string `json:"reason"`
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	var req cancelRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "user_cancel"
	}
	userID := types.ID(req.UserID)
	err := h.requests.Cancel(c.Request.Context(), request.CancelCommand{
		RequestID: types.ID(c.Param("id")),
		ActorType: "user",
		ActorID:   &userID,
		Reason:    reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": request.StatusCancelled})
}

type providerActionReq struct {
	ProviderID string `json:"provider_id" binding:"required"`
}

func (h *RequestHandler) Start(c *gin.Context) {
	var req providerActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.requests.Start(c.Request.Context(), request.StartCommand{
		RequestID:  types.ID(c.Param("id")),
		ProviderID: types.ID(req.ProviderID),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": request.StatusInProgress})
}

func (h *RequestHandler) Complete(c *gin.Context) {
	var req providerActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.requests.Complete(c.Request.Context(), request.CompleteCommand{
		RequestID:  types.ID(c.Param("id")),
		ProviderID: types.ID(req.ProviderID),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": request.StatusCompleted})
}
