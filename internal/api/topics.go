package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codetracker/internal/db"
	"codetracker/internal/models"
)

type topicHandler struct {
	store db.Store
	log   *zap.Logger
}

type createTopicRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func (h *topicHandler) create(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "name is required")
		return
	}
	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}
	if slug == "" {
		fail(c, http.StatusBadRequest, "name must contain letters or digits")
		return
	}

	topic, err := h.store.CreateTopic(c.Request.Context(), &models.Topic{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Color:       req.Color,
		UserID:      callerID(c),
		CreatedAt:   time.Now(),
	})
	if errors.Is(err, db.ErrDuplicate) {
		fail(c, http.StatusConflict, "topic already exists")
		return
	}
	if err != nil {
		h.log.Error("create topic", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, gin.H{"topic": topic})
}

func (h *topicHandler) list(c *gin.Context) {
	topics, err := h.store.ListTopics(c.Request.Context(), callerID(c))
	if err != nil {
		h.log.Error("list topics", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	ok(c, gin.H{"topics": topics, "count": len(topics)})
}

func (h *topicHandler) get(c *gin.Context) {
	topic, err := h.store.GetTopic(c.Request.Context(), callerID(c), c.Param("slug"))
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "topic not found")
		return
	}
	if err != nil {
		h.log.Error("get topic", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, gin.H{"topic": topic})
}

func (h *topicHandler) remove(c *gin.Context) {
	err := h.store.DeleteTopic(c.Request.Context(), callerID(c), c.Param("slug"))
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "topic not found")
		return
	}
	if err != nil {
		h.log.Error("delete topic", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, nil)
}

// problems lists the caller's saved problems filed under the topic.
func (h *topicHandler) problems(c *gin.Context) {
	caller := callerID(c)
	slug := c.Param("slug")
	if _, err := h.store.GetTopic(c.Request.Context(), caller, slug); errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "topic not found")
		return
	}
	problems, err := h.store.ListProblems(c.Request.Context(), caller, db.ProblemFilter{Topic: slug})
	if err != nil {
		h.log.Error("list topic problems", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if problems == nil {
		problems = []models.SavedProblem{}
	}
	ok(c, gin.H{"problems": problems, "count": len(problems)})
}
