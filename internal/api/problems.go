package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codetracker/internal/cache"
	"codetracker/internal/db"
	"codetracker/internal/models"
)

type problemHandler struct {
	store db.Store
	cache *cache.ExistsCache
	log   *zap.Logger
}

type saveRequest struct {
	Problem models.SavedProblem `json:"problem"`
}

// create inserts a record. A duplicate (user, url) answers 200 with
// already_exists and the stored record, so a double save stays a
// success for the client.
func (h *problemHandler) create(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	problem := req.Problem
	if problem.URL == "" || problem.Title == "" {
		fail(c, http.StatusBadRequest, "title and url are required")
		return
	}

	caller := callerID(c)
	if problem.UserID != "" && problem.UserID != caller {
		fail(c, http.StatusForbidden, "cannot save problems for another user")
		return
	}
	problem.UserID = caller
	if problem.DateAdded.IsZero() {
		problem.DateAdded = time.Now()
	}

	saved, err := h.store.CreateProblem(c.Request.Context(), &problem)
	if errors.Is(err, db.ErrDuplicate) {
		existing, getErr := h.store.GetProblemByURL(c.Request.Context(), caller, problem.URL)
		if getErr != nil {
			h.log.Error("load duplicate", zap.Error(getErr))
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		ok(c, gin.H{"already_exists": true, "problem": existing})
		return
	}
	if err != nil {
		h.log.Error("create problem", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), caller, saved.URL, true); err != nil {
			h.log.Warn("cache set", zap.Error(err))
		}
	}
	h.log.Info("problem saved",
		zap.String("user_id", caller),
		zap.String("platform", saved.Platform),
		zap.String("url", saved.URL),
	)
	ok(c, gin.H{"problem": saved})
}

func (h *problemHandler) list(c *gin.Context) {
	filter := db.ProblemFilter{
		Platform:   c.Query("platform"),
		Difficulty: models.Difficulty(c.Query("difficulty")),
		Topic:      c.Query("topic"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			fail(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "completed must be true or false")
			return
		}
		filter.Completed = &completed
	}

	problems, err := h.store.ListProblems(c.Request.Context(), callerID(c), filter)
	if err != nil {
		h.log.Error("list problems", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if problems == nil {
		problems = []models.SavedProblem{}
	}
	ok(c, gin.H{"problems": problems, "count": len(problems)})
}

type patchRequest struct {
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes"`
}

func (h *problemHandler) update(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Completed == nil && req.Notes == nil {
		fail(c, http.StatusBadRequest, "nothing to update")
		return
	}

	updated, err := h.store.UpdateProblem(c.Request.Context(), callerID(c), c.Param("id"), db.ProblemUpdate{
		Completed: req.Completed,
		Notes:     req.Notes,
	})
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "problem not found")
		return
	}
	if err != nil {
		h.log.Error("update problem", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, gin.H{"problem": updated})
}

func (h *problemHandler) remove(c *gin.Context) {
	caller := callerID(c)
	id := c.Param("id")

	// Need the URL before deletion to drop the cache entry.
	var url string
	if h.cache != nil {
		if problems, err := h.store.ListProblems(c.Request.Context(), caller, db.ProblemFilter{}); err == nil {
			for _, p := range problems {
				if p.ID == id {
					url = p.URL
					break
				}
			}
		}
	}

	err := h.store.DeleteProblem(c.Request.Context(), caller, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "problem not found")
		return
	}
	if err != nil {
		h.log.Error("delete problem", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if h.cache != nil && url != "" {
		if err := h.cache.Invalidate(c.Request.Context(), caller, url); err != nil {
			h.log.Warn("cache invalidate", zap.Error(err))
		}
	}
	ok(c, nil)
}

type checkRequest struct {
	URL string `json:"url" binding:"required"`
}

// check answers the duplicate probe, consulting the cache first.
func (h *problemHandler) check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "url is required")
		return
	}
	caller := callerID(c)

	if h.cache != nil {
		if exists, found := h.cache.Get(c.Request.Context(), caller, req.URL); found {
			ok(c, gin.H{"exists": exists})
			return
		}
	}

	exists, err := h.store.ProblemExists(c.Request.Context(), caller, req.URL)
	if err != nil {
		h.log.Error("check problem", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), caller, req.URL, exists); err != nil {
			h.log.Warn("cache set", zap.Error(err))
		}
	}
	ok(c, gin.H{"exists": exists})
}
