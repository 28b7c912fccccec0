package controller

import (
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	ResultService *service.ResultService
}

func NewResultController(resultService *service.ResultService) *ResultController {
	return &ResultController{ResultService: resultService}
}

// List godoc
// @Summary My finished contests and practice sessions
// @Tags Results
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/results [get]
func (c *ResultController) List(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	claims := util.GetUserFromContext(ctx)
	items, total, err := c.ResultService.ListMine(ctx.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// Detail godoc
// @Summary Per-question breakdown of one participation
// @Tags Results
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Participation ID"
// @Success 200 {object} util.Response{data=service.ResultDetail}
// @Failure 404 {object} util.Response
// @Router /api/results/{id} [get]
func (c *ResultController) Detail(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid participation id")
		return
	}
	claims := util.GetUserFromContext(ctx)
	detail, err := c.ResultService.Detail(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
