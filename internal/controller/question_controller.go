package controller

import (
	"io"
	"strconv"

	"placeprep_backend/internal/repository"
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// maxImportSize bounds question bank uploads.
const maxImportSize = 10 << 20

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

func questionFilter(ctx *gin.Context) repository.QuestionFilter {
	filter := repository.QuestionFilter{
		Category:    ctx.Query("category"),
		Subcategory: ctx.Query("subcategory"),
		Level:       ctx.Query("level"),
	}
	if v, err := strconv.ParseBool(ctx.Query("visibility")); err == nil {
		filter.Visibility = &v
	}
	return filter
}

// Create godoc
// @Summary Add a question to the bank
// @Tags Questions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuestionRequest true "Question"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Router /api/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	q, err := c.QuestionService.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// Update godoc
// @Summary Edit a question
// @Tags Questions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Param body body service.QuestionRequest true "Question"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "Used by a contest"
// @Failure 403 {object} util.Response "Not the author"
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.QuestionService.Update(ctx.Request.Context(), util.GetUserFromContext(ctx), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// Delete godoc
// @Summary Delete a question
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "Used by a contest"
// @Failure 403 {object} util.Response "Not the author"
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	if err := c.QuestionService.Delete(ctx.Request.Context(), util.GetUserFromContext(ctx), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Get godoc
// @Summary Get one question
// @Description Hidden questions are only shown to moderators
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [get]
func (c *QuestionController) Get(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	q, err := c.QuestionService.Get(ctx.Request.Context(), util.GetUserFromContext(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// List godoc
// @Summary List questions
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "Category"
// @Param subcategory query string false "Subcategory"
// @Param level query string false "Level"
// @Param visibility query bool false "Visibility"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	items, total, err := c.QuestionService.List(ctx.Request.Context(), questionFilter(ctx), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// Categories godoc
// @Summary Categories with their subcategories
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.CategoryGroup}
// @Router /api/questions/categories [get]
func (c *QuestionController) Categories(ctx *gin.Context) {
	groups, err := c.QuestionService.Categories(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, groups)
}

// Practice godoc
// @Summary Random visible questions for self-study
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "Category"
// @Param subcategory query string false "Subcategory"
// @Param level query string false "Level"
// @Param limit query int false "How many"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/questions/practice [get]
func (c *QuestionController) Practice(ctx *gin.Context) {
	_, limit := util.Pagination(ctx)
	filter := questionFilter(ctx)
	filter.Visibility = nil
	items, err := c.QuestionService.Practice(ctx.Request.Context(), filter, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// Import godoc
// @Summary Bulk import questions
// @Description Accepts an .xlsx sheet with a header row or a .json array. The first invalid row rejects the whole file.
// @Tags Questions
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Question bank"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/questions/import [post]
func (c *QuestionController) Import(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if header.Size > maxImportSize {
		util.BadRequest(ctx, "file is too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	defer file.Close()

	kind, err := util.DetectImportKind(header.Filename, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		util.HandleError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	n, err := c.QuestionService.Import(ctx.Request.Context(), claims.UserID, kind, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"inserted": n})
}

// AddBookmark godoc
// @Summary Bookmark a question
// @Tags Bookmarks
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 201 {object} util.Response{data=model.Bookmark}
// @Failure 400 {object} util.Response "Already bookmarked"
// @Router /api/questions/{id}/bookmark [post]
func (c *QuestionController) AddBookmark(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	claims := util.GetUserFromContext(ctx)
	b, err := c.QuestionService.AddBookmark(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, b)
}

// RemoveBookmark godoc
// @Summary Remove a bookmark
// @Tags Bookmarks
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/questions/{id}/bookmark [delete]
func (c *QuestionController) RemoveBookmark(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.QuestionService.RemoveBookmark(ctx.Request.Context(), claims.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListBookmarks godoc
// @Summary My bookmarks
// @Tags Bookmarks
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Bookmark}
// @Router /api/questions/bookmarks [get]
func (c *QuestionController) ListBookmarks(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	items, err := c.QuestionService.ListBookmarks(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}
