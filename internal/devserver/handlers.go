package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"novel-client/internal/models"
)

// Version - версия, которую отдает /health.
const Version = "devserver-1"

// Handler обрабатывает игровые и админские маршруты devserver.
type Handler struct {
	store   *Store
	stories *StoryService
	logger  *zap.Logger
}

func NewHandler(store *Store, stories *StoryService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, stories: stories, logger: logger.Named("DevserverHandler")}
}

// RegisterGameRoutes подключает маршруты игрока.
func (h *Handler) RegisterGameRoutes(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/base-stories", h.listTemplates)
	r.POST("/stories", h.createStory)
	r.GET("/stories", h.listStories)
	r.GET("/stories/:id", h.getStory)
	r.POST("/stories/:id/complete", h.completeStory)
	r.POST("/stories/:id/continue", h.continueStory)
	r.POST("/generate-segment", h.generateSegment)
	r.POST("/summarize", h.summarize)
}

// RegisterAdminRoutes подключает админские маршруты. Аутентификацию навешивает вызывающий.
func (h *Handler) RegisterAdminRoutes(r gin.IRouter) {
	r.POST("/story-types", h.createStoryType)
	r.GET("/story-types", h.listStoryTypes)
	r.POST("/story-types/assign-prompt", h.assignPrompt)
	r.GET("/story-types/:id", h.getStoryType)
	r.PUT("/story-types/:id", h.updateStoryType)
	r.DELETE("/story-types/:id", h.deleteStoryType)
	r.DELETE("/story-types/:id/prompts/:prompt_id", h.removePrompt)

	r.POST("/base-stories", h.createBaseStory)
	r.GET("/base-stories/:id", h.getBaseStory)
	r.PUT("/base-stories/:id", h.updateBaseStory)
	r.DELETE("/base-stories/:id", h.deleteBaseStory)
	r.PUT("/toggle-base-story/:id", h.toggleBaseStory)

	r.POST("/story-prompts", h.createPrompt)
	r.GET("/story-prompts/all", h.listPrompts)
	r.DELETE("/story-prompts/:id", h.deletePrompt)
}

// handleError выбирает статус по сентинелу и пишет {"detail": ...}.
func (h *Handler) handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	detail := "An unexpected server error occurred."

	switch {
	case errors.Is(err, models.ErrNotFound):
		status, detail = http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrConflict):
		status, detail = http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrBadRequest):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrStoryConfiguration), errors.Is(err, ErrGenerationFailed):
		detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Warn("Request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Detail: detail})
}

func (h *Handler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.handleError(c, badRequest("Invalid request body: %v", err))
		return false
	}
	return true
}

// --- Игровые маршруты ---

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Version: Version})
}

func (h *Handler) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListTemplates())
}

func (h *Handler) createStory(c *gin.Context) {
	var req models.CreateSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	story, err := h.store.CreateUserStory(req.UserID, req.BaseStoryID, req.Title)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CreatedSession{
		ID:                story.ID,
		Title:             story.Title,
		BaseStoryTitle:    story.BaseStoryTitle,
		CurrentTurnNumber: story.CurrentTurnNumber,
		CurrentSummary:    story.CurrentSummary,
		IsCompleted:       story.IsCompleted,
		CreatedAt:         story.CreatedAt,
		UpdatedAt:         story.UpdatedAt,
	})
}

type listStoriesQuery struct {
	UserID           string `form:"userId" binding:"required"`
	IncludeCompleted bool   `form:"includeCompleted"`
}

func (h *Handler) listStories(c *gin.Context) {
	var q listStoriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.handleError(c, badRequest("Invalid query: %v", err))
		return
	}
	c.JSON(http.StatusOK, h.store.ListUserStories(q.UserID, q.IncludeCompleted))
}

func (h *Handler) getStory(c *gin.Context) {
	story, err := h.store.GetUserStory(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *Handler) completeStory(c *gin.Context) {
	resp, err := h.stories.Complete(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) continueStory(c *gin.Context) {
	resp, err := h.stories.Continue(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) generateSegment(c *gin.Context) {
	var req models.GenerateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.stories.GenerateSegment(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) summarize(c *gin.Context) {
	var req models.SummarizeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.stories.Summarize(c.Request.Context(), req.StoryID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// --- Админские маршруты ---

func (h *Handler) createStoryType(c *gin.Context) {
	var in models.StoryTypeInput
	if !h.bindJSON(c, &in) {
		return
	}
	c.JSON(http.StatusCreated, h.store.CreateStoryType(in))
}

func (h *Handler) listStoryTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListStoryTypes())
}

func (h *Handler) getStoryType(c *gin.Context) {
	st, err := h.store.GetStoryType(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) updateStoryType(c *gin.Context) {
	var in models.StoryTypeInput
	if !h.bindJSON(c, &in) {
		return
	}
	st, err := h.store.UpdateStoryType(c.Param("id"), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) deleteStoryType(c *gin.Context) {
	if err := h.store.DeleteStoryType(c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createBaseStory(c *gin.Context) {
	var in models.BaseStoryInput
	if !h.bindJSON(c, &in) {
		return
	}
	ref, err := h.store.CreateBaseStory(in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

func (h *Handler) getBaseStory(c *gin.Context) {
	bs, err := h.store.GetBaseStory(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bs)
}

func (h *Handler) updateBaseStory(c *gin.Context) {
	var in models.BaseStoryInput
	if !h.bindJSON(c, &in) {
		return
	}
	ref, err := h.store.UpdateBaseStory(c.Param("id"), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h *Handler) deleteBaseStory(c *gin.Context) {
	if err := h.store.DeleteBaseStory(c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleBaseStory(c *gin.Context) {
	var req models.ToggleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.store.SetBaseStoryActive(c.Param("id"), *req.Active)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createPrompt(c *gin.Context) {
	var in models.PromptInput
	if !h.bindJSON(c, &in) {
		return
	}
	c.JSON(http.StatusCreated, h.store.CreatePrompt(in))
}

func (h *Handler) listPrompts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListPrompts())
}

func (h *Handler) deletePrompt(c *gin.Context) {
	if err := h.store.DeletePrompt(c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) assignPrompt(c *gin.Context) {
	var req models.AssignPromptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.store.AssignPrompt(req.PromptID, req.StoryTypeID); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) removePrompt(c *gin.Context) {
	if err := h.store.RemovePrompt(c.Param("id"), c.Param("prompt_id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
