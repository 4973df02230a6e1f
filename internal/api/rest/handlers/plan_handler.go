package handlers

import (
	"net/http"

	"github.com/Dhoini/isp-subscription-service/internal/service"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// PlanHandler обработчик каталога планов
type PlanHandler struct {
	planSvc service.PlanService
	log     *logger.Logger
}

// NewPlanHandler создает новый обработчик планов
func NewPlanHandler(planSvc service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{planSvc: planSvc, log: log}
}

// ListPlans возвращает активные планы категории
func (h *PlanHandler) ListPlans(c *gin.Context) {
	category := c.Query("category")

	plans, err := h.planSvc.ListPlans(c.Request.Context(), category)
	if err != nil {
		writeError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans, "count": len(plans)})
}

// GetPlan возвращает план по коду
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.planSvc.GetPlan(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, plan)
}
