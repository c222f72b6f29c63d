package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/middleware"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
	apperrors "github.com/kamrulhasan12345/brainstormers-server/pkg/errors"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for the notification pipeline.
type NotificationHandler struct {
	service  *services.NotificationService
	dispatch *services.DispatchService
	hub      *realtime.Hub
}

// NewNotificationHandler constructs a notification handler with its own
// service instances on top of the shared database and broker.
func NewNotificationHandler(db *gorm.DB, broker *realtime.Broker, hub *realtime.Hub) (*NotificationHandler, error) {
	service, err := services.NewNotificationService(db, broker)
	if err != nil {
		return nil, err
	}
	dispatch, err := services.NewDispatchServiceFromDB(db, service)
	if err != nil {
		return nil, err
	}
	return &NotificationHandler{
		service:  service,
		dispatch: dispatch,
		hub:      hub,
	}, nil
}

// List returns notifications for the current user, newest first, with
// expired rows already filtered out.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)

	items, err := h.service.ListForUser(requestContext(c), services.ListNotificationsInput{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// UnreadCount returns the number of unexpired unread notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// MarkRead flips a notification to read. Re-marking an already-read row is a
// successful no-op.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	dto, err := h.service.MarkRead(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"updated":      dto != nil,
		"notification": dto,
	})
}

// MarkAllRead marks every unread notification for the user as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkAllRead(requestContext(c), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete removes a notification owned by the user.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Dispatch resolves a targeting rule and fans a notification out to every
// resolved recipient. Used by admin tooling.
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var payload services.SendInput
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.dispatch.Send(requestContext(c), payload)
	if err != nil {
		if appErr := asAppError(err); appErr != nil {
			response.Error(c, appErr)
			return
		}
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Preview reports how many recipients a targeting rule currently resolves to
// without sending anything.
func (h *NotificationHandler) Preview(c *gin.Context) {
	var payload struct {
		Rule   services.TargetRule   `json:"rule" validate:"required"`
		Params services.TargetParams `json:"params"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	group, err := h.dispatch.PreviewRecipients(requestContext(c), payload.Rule, payload.Params)
	if err != nil {
		if appErr := asAppError(err); appErr != nil {
			response.Error(c, appErr)
			return
		}
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusOK, group)
}

// Stream upgrades the connection to a WebSocket carrying the user's
// notification change feed.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	h.hub.Serve(userID, []string{realtime.StreamNotifications}, c.Writer, c.Request)
}

func asAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
