package controller

import (
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PracticeController struct {
	PracticeService *service.PracticeService
}

func NewPracticeController(practiceService *service.PracticeService) *PracticeController {
	return &PracticeController{PracticeService: practiceService}
}

// Create godoc
// @Summary Start a free practice session
// @Description Draws random visible questions for the chosen category
// @Tags FreePractice
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.PracticeRequest true "Practice filters"
// @Success 201 {object} util.Response{data=service.PracticeSession}
// @Failure 400 {object} util.Response "Not enough questions"
// @Router /api/free-practice [post]
func (c *PracticeController) Create(ctx *gin.Context) {
	var req service.PracticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	session, err := c.PracticeService.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// Submit godoc
// @Summary Submit a practice session
// @Tags FreePractice
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Practice ID"
// @Param body body SubmitRequest true "Answers"
// @Success 200 {object} util.Response{data=service.PracticeResult}
// @Failure 400 {object} util.Response "Already submitted"
// @Router /api/free-practice/{id}/submit [post]
func (c *PracticeController) Submit(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid practice id")
		return
	}
	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	res, err := c.PracticeService.Submit(ctx.Request.Context(), claims.UserID, id, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// List godoc
// @Summary My practice sessions
// @Tags FreePractice
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/free-practice [get]
func (c *PracticeController) List(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	claims := util.GetUserFromContext(ctx)
	items, total, err := c.PracticeService.List(ctx.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// Result godoc
// @Summary Result of a submitted practice session
// @Tags FreePractice
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Practice ID"
// @Success 200 {object} util.Response{data=service.PracticeResult}
// @Failure 404 {object} util.Response
// @Router /api/free-practice/{id}/result [get]
func (c *PracticeController) Result(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid practice id")
		return
	}
	claims := util.GetUserFromContext(ctx)
	res, err := c.PracticeService.Result(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Stats godoc
// @Summary My practice statistics
// @Description Percentages are null until a session has been submitted
// @Tags FreePractice
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PracticeStats}
// @Router /api/free-practice/stats [get]
func (c *PracticeController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	stats, err := c.PracticeService.Stats(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
