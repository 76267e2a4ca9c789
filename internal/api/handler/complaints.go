package handler

import (
	"errors"
	"net/http"
	"strconv"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/models"
	"incluverse/backend/internal/receipt"

	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type responseRequest struct {
	Response string `json:"response"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

func (h *Handler) complaintID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, errors.New("invalid complaint id"))
		return 0, false
	}
	return id, true
}

// SearchComplaints lists complaints matching ?q= and ?status= (default all).
func (h *Handler) SearchComplaints(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.StatusAll {
		if _, ok := models.ParseStatus(status); !ok {
			h.writeError(c, complaint.ErrUnknownStatus)
			return
		}
	}

	list := make([]models.Complaint, 0)
	for cm := range h.Service.Search(c.Query("q"), status) {
		list = append(list, cm)
	}
	c.JSON(http.StatusOK, gin.H{"complaints": list, "count": len(list)})
}

func (h *Handler) RecentComplaints(c *gin.Context) {
	n := config.RecentActivityCount
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			h.badRequest(c, errors.New("n must be a positive integer"))
			return
		}
		n = v
	}
	c.JSON(http.StatusOK, gin.H{"complaints": h.Service.Recent(n)})
}

// ResponderQueue lists open complaints, most urgent first.
func (h *Handler) ResponderQueue(c *gin.Context) {
	queue := h.Service.Queue()
	c.JSON(http.StatusOK, gin.H{"complaints": queue, "count": len(queue)})
}

func (h *Handler) ComplaintStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Stats())
}

func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	cm, err := h.Service.Get(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": cm})
}

// SubmitComplaint files a new complaint; 201 whether it went out or was kept offline.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	lang, ok := models.ParseLanguage(req.Language)
	if !ok {
		h.writeError(c, complaint.ErrUnknownLanguage)
		return
	}

	cm, err := h.Service.Submit(c.Request.Context(), req.Text, lang)
	if err != nil {
		h.writeError(c, err)
		return
	}

	key := "complaint_submitted"
	if cm.Status == models.StatusOffline {
		key = "complaint_saved_offline"
	}
	c.JSON(http.StatusCreated, gin.H{
		"complaint":    cm,
		"message":      h.message(c, key),
		"tracking_url": receipt.TrackingURL(h.PublicURL, cm.ID),
	})
}

// Receipt returns the QR code of the complaint's tracking link as a PNG, or
// as JSON with a data URL when ?format=dataurl.
func (h *Handler) Receipt(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	if _, err := h.Service.Get(id); err != nil {
		h.writeError(c, err)
		return
	}
	if c.Query("format") == "dataurl" {
		data, err := receipt.DataURL(h.PublicURL, id)
		if err != nil {
			h.abort(c, http.StatusInternalServerError, "invalid_request", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"tracking_url": receipt.TrackingURL(h.PublicURL, id),
			"qr":           data,
		})
		return
	}
	png, err := receipt.PNG(h.PublicURL, id)
	if err != nil {
		h.abort(c, http.StatusInternalServerError, "invalid_request", err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) RateComplaint(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cm, err := h.Service.Rate(c.Request.Context(), id, req.Rating)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": cm, "message": h.message(c, "rating_saved")})
}

func (h *Handler) SetResponse(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cm, err := h.Service.SetResponse(c.Request.Context(), id, req.Response)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": cm, "message": h.message(c, "response_added")})
}

func (h *Handler) AutoResponse(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	cm, err := h.Service.GenerateAutoResponse(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": cm, "message": h.message(c, "auto_response_generated")})
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cm, err := h.Service.SetStatus(c.Request.Context(), id, models.Status(req.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": cm, "message": h.message(c, "status_updated")})
}

// SetConnectivity flips the connectivity signal by hand. Going online triggers
// the sync watcher, not a sync in this request.
func (h *Handler) SetConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.Signal.Set(*req.Online)
	c.JSON(http.StatusOK, gin.H{"online": h.Signal.Online()})
}

func (h *Handler) Sync(c *gin.Context) {
	n, err := h.Service.TrySyncPending(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	msg := h.message(c, "nothing_to_sync")
	if n > 0 {
		msg = h.message(c, "complaints_synced", n)
	}
	c.JSON(http.StatusOK, gin.H{"synced": n, "message": msg})
}
