// internal/api/handlers/replenishment_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/service"
)

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

// parseWarehouseIDs supports both repeated params and comma-separated lists:
//
//	?warehouse_ids=WH-1&warehouse_ids=WH-2
//	?warehouse_ids=WH-1,WH-2
func parseWarehouseIDs(c *gin.Context) []domain.WarehouseID {
	raw := c.QueryArray("warehouse_ids")
	if len(raw) == 0 {
		if single := strings.TrimSpace(c.Query("warehouse_ids")); single != "" {
			raw = []string{single}
		}
	}

	var ids []domain.WarehouseID
	seen := make(map[domain.WarehouseID]struct{})
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id := domain.NormalizeWarehouseID(part)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func parseStatuses(c *gin.Context) []domain.LiquidityStatus {
	value := strings.TrimSpace(c.Query("statuses"))
	if value == "" {
		value = strings.TrimSpace(c.Query("status"))
	}
	if value == "" {
		return nil
	}

	var statuses []domain.LiquidityStatus
	for _, part := range strings.Split(value, ",") {
		if status, ok := domain.ParseLiquidityStatus(part); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func parseSort(c *gin.Context) (sortBy, sortDir string) {
	sortBy = strings.ToLower(strings.TrimSpace(c.Query("sort_by")))
	switch sortBy {
	case domain.SortByPriority, domain.SortByDaysOfStock, domain.SortByRecommendedQuantity:
	default:
		sortBy = ""
	}

	sortDir = strings.ToLower(strings.TrimSpace(c.Query("sort_dir")))
	if sortDir != "desc" {
		sortDir = "asc"
	}
	return sortBy, sortDir
}

func (h *ReplenishmentHandler) GetRecommendations(c *gin.Context) {
	filter := domain.RecommendationFilter{
		WarehouseIDs: parseWarehouseIDs(c),
		Statuses:     parseStatuses(c),
	}
	filter.Limit, filter.Offset = parsePagination(c)
	filter.SortBy, filter.SortDir = parseSort(c)

	if v, err := strconv.Atoi(c.DefaultQuery("max_priority", "0")); err == nil && v > 0 {
		filter.MaxPriority = v
	}

	recs, total, err := h.service.GetRecommendations(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recommendations", "details": err.Error()})
		return
	}

	if recs == nil {
		recs = make([]domain.Recommendation, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"items": recs,
		"total": total,
	})
}

func (h *ReplenishmentHandler) GetMetrics(c *gin.Context) {
	filter := domain.MetricFilter{
		WarehouseIDs: parseWarehouseIDs(c),
		Statuses:     parseStatuses(c),
	}
	filter.Limit, filter.Offset = parsePagination(c)
	filter.SortBy, filter.SortDir = parseSort(c)

	metrics, total, err := h.service.GetMetrics(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch metrics", "details": err.Error()})
		return
	}

	if metrics == nil {
		metrics = make([]domain.ComputedMetric, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"items": metrics,
		"total": total,
	})
}

func (h *ReplenishmentHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit <= 0 {
		limit = 30
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *ReplenishmentHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), runID)
	if errors.Is(err, domain.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

type triggerRunRequest struct {
	WarehouseIDs []string `json:"warehouse_ids"`
}

func (h *ReplenishmentHandler) TriggerRun(c *gin.Context) {
	var req triggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	scope := domain.RunScope{}
	for _, raw := range req.WarehouseIDs {
		if id := domain.NormalizeWarehouseID(raw); id != "" {
			scope.WarehouseIDs = append(scope.WarehouseIDs, id)
		}
	}

	result, err := h.service.TriggerRun(c.Request.Context(), scope)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress for this scope"})
		return
	case errors.Is(err, domain.ErrInvalidConfig):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "replenishment config is invalid", "details": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run failed", "details": err.Error(), "run_id": result.RunID})
		return
	}

	c.JSON(http.StatusAccepted, result)
}
