package handlers

import (
	"bytes"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"siraqemir/internal/models"
	"siraqemir/internal/pdf"
	"siraqemir/internal/services"
)

type TaskHandler struct {
	service services.TaskService
	users   services.UserService
	pdfGen  pdf.Generator
}

// NewTaskHandler wires the task endpoints. pdfGen may be nil, which disables the export.
func NewTaskHandler(service services.TaskService, users services.UserService, pdfGen pdf.Generator) *TaskHandler {
	return &TaskHandler{service: service, users: users, pdfGen: pdfGen}
}

func parseFilter(c *gin.Context) models.TaskFilter {
	var filter models.TaskFilter
	if v, ok := c.GetQuery("status"); ok && strings.TrimSpace(v) != "" {
		st := models.CoerceStatus(v)
		filter.Status = &st
	}
	return filter
}

// @Summary     Create a task
// @Tags        Tasks
// @Accept      json
// @Produce     json
// @Param       task  body      models.TaskInput  true  "Task fields"
// @Success     201   {object}  models.Task
// @Failure     400   {object}  map[string]string
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	log.Printf("[task][create] call by userID=%s", userID)

	var in models.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.Create(c.Request.Context(), userID, in)
	if err != nil {
		log.Printf("[task][create][err] %v", err)
		abortWithError(c, err)
		return
	}
	log.Printf("[task][create][ok] id=%s title=%q", task.ID, task.Title)
	c.JSON(http.StatusCreated, task)
}

// @Summary     Get a task
// @Tags        Tasks
// @Produce     json
// @Param       id   path      string  true  "Task ID"
// @Success     200  {object}  models.Task
// @Failure     404  {object}  map[string]string
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, id := getUserID(c), c.Param("id")
	task, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		log.Printf("[task][getByID][err] id=%s: %v", id, err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary     List tasks, newest first
// @Tags        Tasks
// @Produce     json
// @Param       status  query     string  false  "pending or completed"
// @Success     200     {array}   models.Task
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	userID := getUserID(c)
	log.Printf("[task][list] call by userID=%s q=%v", userID, c.Request.URL.RawQuery)

	tasks, err := h.service.List(c.Request.Context(), userID, parseFilter(c))
	if err != nil {
		log.Printf("[task][list][err] %v", err)
		abortWithError(c, err)
		return
	}
	log.Printf("[task][list][ok] count=%d", len(tasks))
	c.JSON(http.StatusOK, tasks)
}

// @Summary     Update a task
// @Tags        Tasks
// @Accept      json
// @Produce     json
// @Param       id    path      string            true  "Task ID"
// @Param       task  body      models.TaskInput  true  "Task fields"
// @Success     200   {object}  models.Task
// @Failure     400   {object}  map[string]string
// @Failure     404   {object}  map[string]string
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, id := getUserID(c), c.Param("id")
	log.Printf("[task][update] call by userID=%s id=%s", userID, id)

	var in models.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Printf("[task][update][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.service.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		log.Printf("[task][update][err] id=%s: %v", id, err)
		abortWithError(c, err)
		return
	}
	log.Printf("[task][update][ok] id=%s status=%s", task.ID, task.Status)
	c.JSON(http.StatusOK, task)
}

// @Summary     Delete a task
// @Tags        Tasks
// @Param       id   path  string  true  "Task ID"
// @Success     204
// @Failure     404  {object}  map[string]string
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, id := getUserID(c), c.Param("id")
	log.Printf("[task][delete] call by userID=%s id=%s", userID, id)

	if _, err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		log.Printf("[task][delete][err] id=%s: %v", id, err)
		abortWithError(c, err)
		return
	}
	log.Printf("[task][delete][ok] id=%s", id)
	c.Status(http.StatusNoContent)
}

// @Summary     Export tasks as PDF
// @Tags        Tasks
// @Produce     application/pdf
// @Param       status  query  string  false  "pending or completed"
// @Success     200     {file}  binary
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /tasks/export.pdf [get]
func (h *TaskHandler) ExportPDF(c *gin.Context) {
	if h.pdfGen == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "export disabled"})
		return
	}
	ctx := c.Request.Context()
	userID := getUserID(c)

	tasks, err := h.service.List(ctx, userID, parseFilter(c))
	if err != nil {
		log.Printf("[task][export][err] %v", err)
		abortWithError(c, err)
		return
	}
	owner := userID
	if u, err := h.users.GetUserByID(ctx, userID); err == nil {
		owner = u.Email
	}

	var buf bytes.Buffer
	if err := h.pdfGen.TaskList(&buf, pdf.TaskListData{Owner: owner, Tasks: tasks, GeneratedAt: time.Now()}); err != nil {
		log.Printf("[task][export][err] render: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render pdf"})
		return
	}
	log.Printf("[task][export][ok] userID=%s count=%d bytes=%d", userID, len(tasks), buf.Len())
	c.Header("Content-Disposition", `attachment; filename="tasks.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
