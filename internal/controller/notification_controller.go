package controller

import (
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewNotificationController(notifications *service.NotificationService, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{NotificationService: notifications, Hub: hub}
}

// List godoc
// @Summary My notifications
// @Tags Notifications
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=service.NotificationPage}
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	claims := util.GetUserFromContext(ctx)
	res, err := c.NotificationService.List(ctx.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notifications/{id}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid notification id")
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.NotificationService.MarkRead(ctx.Request.Context(), claims.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notifications
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications/read-all [put]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	n, err := c.NotificationService.MarkAllRead(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": n})
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notifications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notifications/{id} [delete]
func (c *NotificationController) Delete(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid notification id")
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.NotificationService.Delete(ctx.Request.Context(), claims.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Connect godoc
// @Summary Live notification stream
// @Description Upgrades to a websocket. The token may be passed as a query parameter or cookie.
// @Tags Notifications
// @Security ApiKeyAuth
// @Param token query string false "Access token"
// @Router /api/notifications/ws [get]
func (c *NotificationController) Connect(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	c.Hub.ServeWS(ctx.Writer, ctx.Request, claims.UserID)
}
