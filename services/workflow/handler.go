package workflow

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/httpapi"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/application"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/rating"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/work"

	"github.com/gin-gonic/gin"
)

// Handler exposes the workflow facade over REST.
type Handler struct {
	workflow *Service
	tasks    *task.Service
	ratings  *rating.Service
}

func NewHandler(workflow *Service, tasks *task.Service, ratings *rating.Service) *Handler {
	return &Handler{workflow: workflow, tasks: tasks, ratings: ratings}
}

func (h *Handler) Register(r gin.IRouter) {
	tasks := r.Group("/workflow/tasks")
	{
		tasks.POST("", h.createTask)
		tasks.GET("", h.listTasks)
		tasks.GET("/:id/workflow", h.status)
		tasks.POST("/:id/publish", h.publish)
		tasks.POST("/:id/apply", h.apply)
		tasks.POST("/:id/submit-work", h.submitWork)
		tasks.POST("/:id/assets/:assetId/review", h.reviewWork)
		tasks.POST("/:id/complete", h.complete)
		tasks.POST("/:id/rating/:userId", h.rate)
	}

	r.POST("/workflow/applications/:id/review", h.reviewApplication)
	r.POST("/task-stages/:id/transition", h.transition)
	r.GET("/users/:id/rating-summary", h.ratingSummary)
}

func actor(c *gin.Context) (middleware.Actor, bool) {
	a, ok := middleware.ActorFrom(c.Request.Context())
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing actor identity"))
		return middleware.Actor{}, false
	}
	return a, true
}

func (h *Handler) createTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req task.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	created, err := h.workflow.CreateTask(c.Request.Context(), a, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, created, "task created")
}

func (h *Handler) listTasks(c *gin.Context) {
	var req task.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed query", errutil.WithErr(err)))
		return
	}

	tasks, pageInfo, err := h.tasks.List(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, gin.H{"tasks": tasks, "page_info": pageInfo}, "tasks listed")
}

func (h *Handler) status(c *gin.Context) {
	snapshot, err := h.workflow.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, snapshot, "workflow status")
}

func (h *Handler) publish(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	published, err := h.workflow.PublishTask(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, published, "task published")
}

func (h *Handler) apply(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req application.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	app, err := h.workflow.SubmitApplication(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, app, "application submitted")
}

func (h *Handler) reviewApplication(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req application.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	decided, err := h.workflow.ReviewApplication(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, decided, "application reviewed")
}

func (h *Handler) submitWork(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req work.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	asset, err := h.workflow.SubmitWork(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, asset, "work submitted")
}

func (h *Handler) reviewWork(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req work.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	reviewed, err := h.workflow.ReviewWork(c.Request.Context(), a, c.Param("assetId"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, reviewed, "work reviewed")
}

func (h *Handler) complete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	completed, err := h.workflow.CompleteTask(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, completed, "task completed")
}

func (h *Handler) rate(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req rating.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	r, err := h.workflow.SubmitRating(c.Request.Context(), a, c.Param("id"), c.Param("userId"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, r, "rating submitted")
}

func (h *Handler) transition(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req task.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", errutil.WithErr(err)))
		return
	}

	moved, err := h.workflow.Transition(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, moved, "stage changed")
}

func (h *Handler) ratingSummary(c *gin.Context) {
	summary, err := h.ratings.SummaryFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, summary, "rating summary")
}
