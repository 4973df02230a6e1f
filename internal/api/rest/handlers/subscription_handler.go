package handlers

import (
	"context"
	"net/http"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/middleware"
	"github.com/Dhoini/isp-subscription-service/internal/service"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/Dhoini/isp-subscription-service/pkg/req"
	"github.com/Dhoini/isp-subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler обработчик для подписок
type SubscriptionHandler struct {
	subscriptionSvc service.SubscriptionService
	log             *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(subscriptionSvc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionSvc: subscriptionSvc,
		log:             log,
	}
}

// userID читает ID пользователя, установленный JWT middleware
func (h *SubscriptionHandler) userID(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		h.log.Error("User ID missing in context for %s", c.Request.URL.Path)
		res.JsonError(c, http.StatusUnauthorized, "unauthenticated", nil)
	}
	return id, ok
}

// Subscribe создает, продлевает или планирует подписку
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	body, err := req.HandleBody[domain.SubscribeRequest](c, h.log)
	if err != nil {
		return
	}

	subscription, err := h.subscriptionSvc.Subscribe(c.Request.Context(), userID, body.PlanCode, body.DurationMonths)
	if err != nil {
		writeError(c, err, h.log)
		return
	}

	res.JsonResponse(c, subscription, http.StatusOK)
}

// ListSubscriptions возвращает все подписки пользователя
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	subscriptions, err := h.subscriptionSvc.ListUserSubscriptions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, h.log)
		return
	}

	res.JsonResponse(c, gin.H{"subscriptions": subscriptions, "count": len(subscriptions)}, http.StatusOK)
}

// GetActive возвращает ACTIVE подписку в категории
func (h *SubscriptionHandler) GetActive(c *gin.Context) {
	h.getByStatus(c, h.subscriptionSvc.GetActive)
}

// GetPending возвращает PENDING подписку в категории
func (h *SubscriptionHandler) GetPending(c *gin.Context) {
	h.getByStatus(c, h.subscriptionSvc.GetPending)
}

type subscriptionLookup func(ctx context.Context, userID int64, category domain.Category) (domain.Subscription, error)

func (h *SubscriptionHandler) getByStatus(c *gin.Context, find subscriptionLookup) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	category, err := domain.ParseCategory(c.Query("category"))
	if err != nil {
		res.JsonError(c, http.StatusBadRequest, "category must be one of TV, MOBILE, INTERNET", nil)
		return
	}

	subscription, err := find(c.Request.Context(), userID, category)
	if err != nil {
		writeError(c, err, h.log)
		return
	}

	res.JsonResponse(c, subscription, http.StatusOK)
}

// CancelSubscription удаляет PENDING подписку
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.subscriptionSvc.CancelSubscription(c.Request.Context(), id, userID); err != nil {
		writeError(c, err, h.log)
		return
	}

	h.log.Info("User %d cancelled subscription %s", userID, id)
	c.Status(http.StatusNoContent)
}
