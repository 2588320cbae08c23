package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codetracker/internal/auth"
	"codetracker/internal/db"
	"codetracker/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router *gin.Engine
	store  *db.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := db.NewMemoryStore()
	tokens := auth.NewTokenService("test-secret", "codetracker", 30*time.Minute, time.Hour)
	service := auth.NewService(store, tokens)
	return &testAPI{
		router: NewRouter(store, nil, service, tokens, zap.NewNop()),
		store:  store,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	parsed := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func (a *testAPI) signUp(t *testing.T, email string) *models.Session {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "hunter22!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess models.Session
	require.NoError(t, json.Unmarshal(body["session"], &sess))
	return &sess
}

func problemPayload(url string) map[string]any {
	return map[string]any{
		"problem": models.SavedProblem{
			Title:      "Two Sum",
			URL:        url,
			Difficulty: models.DifficultyEasy,
			Platform:   "leetcode",
			Topic:      "arrays",
		},
	}
}

const twoSumURL = "https://leetcode.com/problems/two-sum/"

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec, _ := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")
	require.NotEmpty(t, sess.AccessToken)

	rec, body := a.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "dev@example.com", "password": "hunter22!",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "dev@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var signedIn models.Session
	require.NoError(t, json.Unmarshal(body["session"], &signedIn))
	rec, body = a.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": signedIn.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var renewed models.Session
	require.NoError(t, json.Unmarshal(body["session"], &renewed))
	assert.Equal(t, signedIn.User.ID, renewed.User.ID)
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	a := newTestAPI(t)
	a.signUp(t, "dev@example.com")
	rec, _ := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "dev@example.com", "password": "hunter22!",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProblemsRequireAuth(t *testing.T) {
	a := newTestAPI(t)
	rec, _ := a.do(t, http.MethodGet, "/api/problems", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/problems", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveAndListProblems(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	rec, body := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, problemPayload(twoSumURL))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problem"], &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, sess.User.ID, saved.UserID)

	rec, body = a.do(t, http.MethodGet, "/api/problems", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var problems []models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problems"], &problems))
	require.Len(t, problems, 1)
	assert.Equal(t, "Two Sum", problems[0].Title)
}

func TestSaveDuplicateAnswersAlreadyExists(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	rec, _ := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, problemPayload(twoSumURL))
	require.Equal(t, http.StatusOK, rec.Code)

	// Same problem under a URL variant: still one record.
	rec, body := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken,
		problemPayload("https://www.leetcode.com/problems/two-sum/?tab=description"))
	require.Equal(t, http.StatusOK, rec.Code, "a duplicate save is a success, not an error")
	var alreadyExists bool
	require.NoError(t, json.Unmarshal(body["already_exists"], &alreadyExists))
	assert.True(t, alreadyExists)
	var existing models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problem"], &existing))
	assert.NotEmpty(t, existing.ID)

	rec, body = a.do(t, http.MethodGet, "/api/problems", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var problems []models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problems"], &problems))
	assert.Len(t, problems, 1)
}

func TestSaveForAnotherUserForbidden(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	payload := problemPayload(twoSumURL)
	payload["problem"] = models.SavedProblem{Title: "Two Sum", URL: twoSumURL, UserID: "someone-else"}
	rec, _ := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsersAreIsolated(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signUp(t, "alice@example.com")
	bob := a.signUp(t, "bob@example.com")

	rec, _ := a.do(t, http.MethodPost, "/api/problems", alice.AccessToken, problemPayload(twoSumURL))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := a.do(t, http.MethodGet, "/api/problems", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var problems []models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problems"], &problems))
	assert.Empty(t, problems, "one user must not see another's records")

	// Bob saving the same URL is not a duplicate: uniqueness is per user.
	rec, body = a.do(t, http.MethodPost, "/api/problems", bob.AccessToken, problemPayload(twoSumURL))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "already_exists")
}

func TestListFilters(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	save := func(title, url, platform string, difficulty models.Difficulty) {
		rec, _ := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, map[string]any{
			"problem": models.SavedProblem{Title: title, URL: url, Platform: platform, Difficulty: difficulty},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	save("Two Sum", twoSumURL, "leetcode", models.DifficultyEasy)
	save("Theatre Square", "https://codeforces.com/problemset/problem/1/A", "codeforces", models.DifficultyMedium)
	save("Edit Distance", "https://leetcode.com/problems/edit-distance/", "leetcode", models.DifficultyHard)

	list := func(query string) []models.SavedProblem {
		rec, body := a.do(t, http.MethodGet, "/api/problems"+query, sess.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var problems []models.SavedProblem
		require.NoError(t, json.Unmarshal(body["problems"], &problems))
		return problems
	}

	assert.Len(t, list(""), 3)
	assert.Len(t, list("?platform=leetcode"), 2)
	assert.Len(t, list("?difficulty=Hard"), 1)
	assert.Len(t, list("?limit=2"), 2)
	assert.Len(t, list("?completed=true"), 0)

	rec, _ := a.do(t, http.MethodGet, "/api/problems?limit=nope", sess.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProblem(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	_, body := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, problemPayload(twoSumURL))
	var saved models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problem"], &saved))

	rec, body := a.do(t, http.MethodPatch, "/api/problems/"+saved.ID, sess.AccessToken, map[string]any{
		"completed": true,
		"notes":     "hash map, one pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problem"], &updated))
	assert.True(t, updated.Completed)
	assert.Equal(t, "hash map, one pass", updated.Notes)

	rec, _ = a.do(t, http.MethodPatch, "/api/problems/"+saved.ID, sess.AccessToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "an empty patch is rejected")

	rec, _ = a.do(t, http.MethodPatch, "/api/problems/ghost", sess.AccessToken, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSomeoneElsesProblem(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signUp(t, "alice@example.com")
	bob := a.signUp(t, "bob@example.com")

	_, body := a.do(t, http.MethodPost, "/api/problems", alice.AccessToken, problemPayload(twoSumURL))
	var saved models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problem"], &saved))

	rec, _ := a.do(t, http.MethodPatch, "/api/problems/"+saved.ID, bob.AccessToken, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code, "ownership failures read as not found")
}

func TestDeleteProblem(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	_, body := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, problemPayload(twoSumURL))
	var saved models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problem"], &saved))

	rec, _ := a.do(t, http.MethodDelete, "/api/problems/"+saved.ID, sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodDelete, "/api/problems/"+saved.ID, sess.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckProblem(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	check := func(url string) bool {
		rec, body := a.do(t, http.MethodPost, "/api/problems/check", sess.AccessToken, map[string]string{"url": url})
		require.Equal(t, http.StatusOK, rec.Code)
		var exists bool
		require.NoError(t, json.Unmarshal(body["exists"], &exists))
		return exists
	}

	assert.False(t, check(twoSumURL))

	rec, _ := a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, problemPayload(twoSumURL))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, check(twoSumURL))
	assert.True(t, check("https://www.leetcode.com/problems/two-sum/#hints"), "URL variants hit the same record")
	assert.False(t, check("https://leetcode.com/problems/three-sum/"))
}

func TestTopicsCRUD(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	rec, body := a.do(t, http.MethodPost, "/api/topics", sess.AccessToken, map[string]string{
		"name": "Dynamic Programming", "color": "#ff0000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var topic models.Topic
	require.NoError(t, json.Unmarshal(body["topic"], &topic))
	assert.Equal(t, "dynamic-programming", topic.Slug, "slug derives from the name")

	rec, _ = a.do(t, http.MethodPost, "/api/topics", sess.AccessToken, map[string]string{"name": "Dynamic Programming"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = a.do(t, http.MethodGet, "/api/topics", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var topics []models.Topic
	require.NoError(t, json.Unmarshal(body["topics"], &topics))
	assert.Len(t, topics, 1)

	rec, _ = a.do(t, http.MethodGet, "/api/topics/dynamic-programming", sess.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodDelete, "/api/topics/dynamic-programming", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/topics/dynamic-programming", sess.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopicProblems(t *testing.T) {
	a := newTestAPI(t)
	sess := a.signUp(t, "dev@example.com")

	rec, _ := a.do(t, http.MethodPost, "/api/topics", sess.AccessToken, map[string]string{"name": "Arrays"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, problemPayload(twoSumURL))
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(t, http.MethodPost, "/api/problems", sess.AccessToken, map[string]any{
		"problem": models.SavedProblem{Title: "Edit Distance", URL: "https://leetcode.com/problems/edit-distance/", Topic: "dynamic-programming"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := a.do(t, http.MethodGet, "/api/topics/arrays/problems", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var problems []models.SavedProblem
	require.NoError(t, json.Unmarshal(body["problems"], &problems))
	require.Len(t, problems, 1)
	assert.Equal(t, "Two Sum", problems[0].Title)

	rec, _ = a.do(t, http.MethodGet, "/api/topics/ghost/problems", sess.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	store := db.NewMemoryStore()
	expired := auth.NewTokenService("test-secret", "codetracker", -time.Minute, time.Hour)
	live := auth.NewTokenService("test-secret", "codetracker", 30*time.Minute, time.Hour)
	service := auth.NewService(store, expired)
	router := NewRouter(store, nil, service, live, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
		"email": "dev@example.com", "password": "hunter22!",
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Session models.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	req = httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", body.Session.AccessToken))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
