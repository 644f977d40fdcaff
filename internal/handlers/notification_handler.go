package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/httpx"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/service"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/validation"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) CreateNotification(c *fiber.Ctx) error {
	var input service.CreateNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.UserID == "" {
		return httpx.BadRequest(c, "missing_user", "userId is required")
	}
	if input.Title == "" {
		return httpx.BadRequest(c, "missing_title", "title is required")
	}
	if input.NotifiableType != nil && !validation.ValidateNotifiableKind(*input.NotifiableType) {
		return httpx.BadRequest(c, "invalid_notifiable_type", "Unknown notifiable type")
	}

	envelope, err := h.notificationService.Create(input)
	if err != nil {
		return httpx.Internal(c, "create_notification_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(envelope)
}

func (h *NotificationHandler) CreateTemplate(c *fiber.Ctx) error {
	var input service.CreateTemplateInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.UserID == "" {
		return httpx.BadRequest(c, "missing_user", "userId is required")
	}
	if input.Title == "" {
		return httpx.BadRequest(c, "missing_title", "title is required")
	}

	template, err := h.notificationService.CreateTemplate(input)
	if err != nil {
		return httpx.BadRequest(c, "invalid_template", err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *NotificationHandler) GetTemplate(c *fiber.Ctx) error {
	notifiableType, notifiableID, err := notifiableQuery(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_notifiable", err.Error())
	}

	template, err := h.notificationService.GetTemplateByNotifiable(notifiableType, notifiableID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return httpx.NotFound(c, "template_not_found", "Template not found")
		}
		return httpx.Internal(c, "get_template_failed")
	}

	return c.JSON(template)
}

func (h *NotificationHandler) UpdateTemplate(c *fiber.Ctx) error {
	notifiableType, notifiableID, err := notifiableQuery(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_notifiable", err.Error())
	}

	var input service.UpdateTemplateInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	template, err := h.notificationService.UpdateTemplateByNotifiable(notifiableType, notifiableID, input)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return httpx.NotFound(c, "template_not_found", "Template not found")
		}
		return httpx.BadRequest(c, "invalid_template", err.Error())
	}

	return c.JSON(template)
}

func (h *NotificationHandler) DeleteTemplate(c *fiber.Ctx) error {
	notifiableType, notifiableID, err := notifiableQuery(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_notifiable", err.Error())
	}

	if err := h.notificationService.DeleteTemplateByNotifiable(notifiableType, notifiableID); err != nil {
		return httpx.Internal(c, "delete_template_failed")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return httpx.BadRequest(c, "missing_user", "userId is required")
	}

	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	perPage := 20
	if p, err := strconv.Atoi(c.Query("per_page")); err == nil && p > 0 && p <= 100 {
		perPage = p
	}

	list, err := h.notificationService.List(userID, page, perPage)
	if err != nil {
		return httpx.Internal(c, "list_notifications_failed")
	}

	return c.JSON(list)
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_id", "Invalid notification id")
	}

	if err := h.notificationService.MarkAsRead(uint(id), userID); err != nil {
		return httpx.Internal(c, "mark_read_failed")
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if err := h.notificationService.MarkAllAsRead(userID); err != nil {
		return httpx.Internal(c, "mark_all_read_failed")
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func notifiableQuery(c *fiber.Ctx) (string, uint, error) {
	notifiableType := c.Query("notifiableType")
	if !validation.ValidateNotifiableKind(notifiableType) {
		return "", 0, errors.New("unknown notifiable type")
	}

	id, err := strconv.ParseUint(c.Query("notifiableId"), 10, 32)
	if err != nil || id == 0 {
		return "", 0, errors.New("invalid notifiable id")
	}

	return notifiableType, uint(id), nil
}
