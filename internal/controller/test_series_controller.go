package controller

import (
	"fmt"
	"net/http"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestSeriesController struct {
	ContestService     *service.ContestService
	LeaderboardService *service.LeaderboardService
	ExportService      *service.ExportService
}

func NewTestSeriesController(contests *service.ContestService, leaderboard *service.LeaderboardService, exports *service.ExportService) *TestSeriesController {
	return &TestSeriesController{
		ContestService:     contests,
		LeaderboardService: leaderboard,
		ExportService:      exports,
	}
}

// swagger:model JoinRequest
type JoinRequest struct {
	ContestCode string `json:"contestCode"`
}

// swagger:model SubmitRequest
type SubmitRequest struct {
	Answers []service.AnswerInput `json:"answers" binding:"dive"`
}

// swagger:model ViolationRequest
type ViolationRequest struct {
	ParticipationID uint   `json:"participationId" binding:"required"`
	ViolationType   string `json:"violationType" binding:"required,max=50"`
}

func contestID(ctx *gin.Context) (uint, bool) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid test series id")
	}
	return id, ok
}

// Create godoc
// @Summary Schedule a contest
// @Description Attached questions are hidden from practice until the contest ends
// @Tags TestSeries
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.TestSeriesRequest true "Contest"
// @Success 201 {object} util.Response{data=service.TestSeriesDetail}
// @Failure 400 {object} util.Response
// @Router /api/testseries [post]
func (c *TestSeriesController) Create(ctx *gin.Context) {
	var req service.TestSeriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	detail, err := c.ContestService.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, detail)
}

// Update godoc
// @Summary Edit a contest before it starts
// @Tags TestSeries
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Param body body service.TestSeriesRequest true "Contest"
// @Success 200 {object} util.Response{data=service.TestSeriesDetail}
// @Failure 400 {object} util.Response "Already started"
// @Router /api/testseries/{id} [put]
func (c *TestSeriesController) Update(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	var req service.TestSeriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.ContestService.Update(ctx.Request.Context(), util.GetUserFromContext(ctx), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// Delete godoc
// @Summary Delete a contest before it starts
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "Already started"
// @Router /api/testseries/{id} [delete]
func (c *TestSeriesController) Delete(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	if err := c.ContestService.Delete(ctx.Request.Context(), util.GetUserFromContext(ctx), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// List godoc
// @Summary List contests
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "upcoming, ongoing or past"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/testseries [get]
func (c *TestSeriesController) List(ctx *gin.Context) {
	status := model.ContestStatus(ctx.Query("status"))
	switch status {
	case "", model.ContestUpcoming, model.ContestOngoing, model.ContestPast:
	default:
		util.BadRequest(ctx, "status must be upcoming, ongoing or past")
		return
	}

	page, limit := util.Pagination(ctx)
	items, total, err := c.ContestService.List(ctx.Request.Context(), status, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// Get godoc
// @Summary Get a contest
// @Description The paper is included for moderators, or for everyone once the contest has ended
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Success 200 {object} util.Response{data=service.TestSeriesDetail}
// @Failure 404 {object} util.Response
// @Router /api/testseries/{id} [get]
func (c *TestSeriesController) Get(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	detail, err := c.ContestService.Get(ctx.Request.Context(), util.GetUserFromContext(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// Join godoc
// @Summary Join or resume a running contest
// @Tags TestSeries
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Param body body JoinRequest false "Contest code"
// @Success 200 {object} util.Response{data=service.JoinResult}
// @Failure 400 {object} util.Response "Not running or already submitted"
// @Failure 403 {object} util.Response "Invalid contest code"
// @Router /api/testseries/{id}/join [post]
func (c *TestSeriesController) Join(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	var req JoinRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	claims := util.GetUserFromContext(ctx)
	res, err := c.ContestService.Join(ctx.Request.Context(), claims.UserID, id, req.ContestCode)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// SaveAnswer godoc
// @Summary Save an in-progress answer
// @Tags TestSeries
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Param body body service.AnswerInput true "Answer"
// @Success 200 {object} util.Response
// @Router /api/testseries/{id}/answer [post]
func (c *TestSeriesController) SaveAnswer(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	var req service.AnswerInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.ContestService.SaveAnswer(ctx.Request.Context(), claims.UserID, id, req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Submit godoc
// @Summary Submit a contest attempt
// @Tags TestSeries
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Param body body SubmitRequest true "Answers"
// @Success 200 {object} util.Response{data=service.ContestResult}
// @Failure 400 {object} util.Response "Already submitted or contest ended"
// @Router /api/testseries/{id}/submit [post]
func (c *TestSeriesController) Submit(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	res, err := c.ContestService.Submit(ctx.Request.Context(), claims.UserID, id, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// RecordViolation godoc
// @Summary Report a proctoring violation
// @Description Every call counts. shouldAutoSubmit turns true at the configured threshold.
// @Tags TestSeries
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ViolationRequest true "Violation"
// @Success 200 {object} util.Response{data=service.ViolationResult}
// @Router /api/testseries/violation [post]
func (c *TestSeriesController) RecordViolation(ctx *gin.Context) {
	var req ViolationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	res, err := c.ContestService.RecordViolation(ctx.Request.Context(), claims.UserID, req.ParticipationID, req.ViolationType)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// MyResult godoc
// @Summary My graded result for a contest
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Success 200 {object} util.Response{data=service.ContestResult}
// @Failure 404 {object} util.Response
// @Router /api/testseries/{id}/my-result [get]
func (c *TestSeriesController) MyResult(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	res, err := c.ContestService.MyResult(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Leaderboard godoc
// @Summary Contest leaderboard
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Failure 404 {object} util.Response
// @Router /api/testseries/{id}/leaderboard [get]
func (c *TestSeriesController) Leaderboard(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	entries, err := c.LeaderboardService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// Stats godoc
// @Summary Contest statistics
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Success 200 {object} util.Response{data=service.ContestStats}
// @Router /api/testseries/{id}/stats [get]
func (c *TestSeriesController) Stats(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	stats, err := c.ContestService.Stats(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// Export godoc
// @Summary Download contest results
// @Tags TestSeries
// @Produce octet-stream
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Router /api/testseries/{id}/export [get]
func (c *TestSeriesController) Export(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}

	var (
		export *service.Export
		err    error
	)
	switch ctx.DefaultQuery("format", "csv") {
	case "csv":
		export, err = c.ExportService.LeaderboardCSV(ctx.Request.Context(), id)
	case "xlsx":
		export, err = c.ExportService.ReportXLSX(ctx.Request.Context(), id)
	default:
		util.BadRequest(ctx, "format must be csv or xlsx")
		return
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	ctx.Data(http.StatusOK, export.ContentType, export.Data)
}

// Archive godoc
// @Summary Store the XLSX report in object storage
// @Tags TestSeries
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test series ID"
// @Success 201 {object} util.Response{data=object}
// @Router /api/testseries/{id}/export/archive [post]
func (c *TestSeriesController) Archive(ctx *gin.Context) {
	id, ok := contestID(ctx)
	if !ok {
		return
	}
	url, err := c.ExportService.Archive(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
