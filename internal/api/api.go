package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ozon-monitor/internal/database"
	"ozon-monitor/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type APIHandler struct {
	db        *gorm.DB
	prices    *services.PriceService
	scheduler *services.SchedulerService
	hub       *Hub
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, prices *services.PriceService, scheduler *services.SchedulerService, hub *Hub) *APIHandler {
	handler := &APIHandler{
		db:        db,
		prices:    prices,
		scheduler: scheduler,
		hub:       hub,
	}

	r.GET("/prices/changes", handler.GetPriceChanges)
	r.POST("/run", handler.RunNow)
	r.GET("/tasks", handler.ListTasks)

	cfg := r.Group("/config")
	{
		cfg.GET("/companies", handler.GetCompanies)
		cfg.POST("/companies", handler.AddCompanies)
		cfg.DELETE("/companies/:id", handler.DeleteCompany)

		cfg.GET("/times", handler.GetScheduledTimes)
		cfg.POST("/times", handler.AddScheduledTimes)
		cfg.DELETE("/times/:time", handler.DeleteScheduledTime)

		cfg.PUT("/cookies", handler.UpdateCookies)

		cfg.GET("/report-path", handler.GetReportPath)
		cfg.PUT("/report-path", handler.UpdateReportPath)
	}

	return handler
}

// GetPriceChanges serves one page of day-over-day changes. Defaults to
// today when no date is given.
func (h *APIHandler) GetPriceChanges(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format(database.DateFormat))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	response, err := h.prices.GetPriceChange(
		date, pageSize, (page-1)*pageSize,
		c.Query("company_id"), c.Query("offer_id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"price_changes": response.PriceChanges,
		"total":         response.Total,
		"page":          page,
		"page_size":     pageSize,
	})
}

type runRequest struct {
	CompanyID string `json:"company_id" binding:"required"`
	Date      string `json:"date"`
}

// RunNow kicks off ingestion and report generation for one company
// outside the schedule. Refused while another run is executing.
func (h *APIHandler) RunNow(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().Format(database.DateFormat)
	} else if _, err := time.Parse(database.DateFormat, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	if err := h.scheduler.RunNow(req.CompanyID, date); err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "company_id": req.CompanyID, "date": date})
}

func (h *APIHandler) ListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	tasks, err := database.ListTasks(h.db, pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := database.CountTasks(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":     tasks,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type valuesRequest struct {
	Values []string `json:"values" binding:"required"`
}

func (h *APIHandler) GetCompanies(c *gin.Context) {
	ids, err := database.GetCompanyIDs(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"company_ids": ids})
}

func (h *APIHandler) AddCompanies(c *gin.Context) {
	var req valuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := database.AddCompanyIDs(h.db, req.Values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) DeleteCompany(c *gin.Context) {
	if err := database.DeleteCompanyID(h.db, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) GetScheduledTimes(c *gin.Context) {
	times, err := database.GetScheduledTimes(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduled_times": times})
}

// AddScheduledTimes stores new times and restarts the scheduler so the
// change takes effect for future firings. Times are validated before
// anything is written.
func (h *APIHandler) AddScheduledTimes(c *gin.Context) {
	var req valuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, value := range req.Values {
		if err := services.ValidateClock(value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := database.AddScheduledTimes(h.db, req.Values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.scheduler.Restart(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) DeleteScheduledTime(c *gin.Context) {
	if err := database.DeleteScheduledTime(h.db, c.Param("time")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.scheduler.Restart(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type valueRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *APIHandler) UpdateCookies(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := database.UpsertCookies(h.db, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) GetReportPath(c *gin.Context) {
	path, err := database.GetReportPath(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_path": path})
}

func (h *APIHandler) UpdateReportPath(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := database.SaveReportPath(h.db, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
