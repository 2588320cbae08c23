package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/internal/models"
)

func problem(url string) models.SavedProblem {
	return models.SavedProblem{
		Title:      "Two Sum",
		URL:        url,
		Difficulty: models.DifficultyEasy,
		Platform:   "leetcode",
	}
}

func TestSaveAndHasProblem(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	require.NoError(t, s.SaveProblem("user-a", problem("https://leetcode.com/problems/two-sum/")))
	assert.True(t, s.HasProblem("user-a", "https://leetcode.com/problems/two-sum/"))
	assert.False(t, s.HasProblem("user-a", "https://leetcode.com/problems/three-sum/"))
}

func TestHasProblemNormalizesURL(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	require.NoError(t, s.SaveProblem("u", problem("https://leetcode.com/problems/two-sum/")))
	assert.True(t, s.HasProblem("u", "https://www.leetcode.com/problems/two-sum/?tab=description#hints"))
}

func TestSaveSameURLReplaces(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	first := problem("https://leetcode.com/problems/two-sum/")
	require.NoError(t, s.SaveProblem("u", first))

	updated := first
	updated.ID = "server-id-1"
	updated.Notes = "use a hash map"
	require.NoError(t, s.SaveProblem("u", updated))

	got := s.SavedProblems("u")
	require.Len(t, got, 1, "one URL never yields two records")
	assert.Equal(t, "server-id-1", got[0].ID)
	assert.Equal(t, "use a hash map", got[0].Notes)
}

func TestPartitionsAreIsolatedPerUser(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	require.NoError(t, s.SaveProblem("alice", problem("https://leetcode.com/problems/two-sum/")))

	assert.False(t, s.HasProblem("bob", "https://leetcode.com/problems/two-sum/"))
	assert.Empty(t, s.SavedProblems("bob"))
}

func TestRemoveProblem(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	require.NoError(t, s.SaveProblem("u", problem("https://leetcode.com/problems/two-sum/")))
	require.NoError(t, s.RemoveProblem("u", "https://www.leetcode.com/problems/two-sum/"))
	assert.False(t, s.HasProblem("u", "https://leetcode.com/problems/two-sum/"))

	// Removing a URL that is not there is not an error.
	require.NoError(t, s.RemoveProblem("u", "https://leetcode.com/problems/ghost/"))
}

func TestClearSessionKeepsPartitions(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	require.NoError(t, s.SetSession(&models.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		User:         models.SessionUser{ID: "u", Email: "u@example.com"},
	}))
	require.NoError(t, s.SaveProblem("u", problem("https://leetcode.com/problems/two-sum/")))

	require.NoError(t, s.ClearSession())
	assert.Nil(t, s.Session())
	assert.True(t, s.HasProblem("u", "https://leetcode.com/problems/two-sum/"),
		"sign-out must not wipe saved problems")
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetSession(&models.Session{AccessToken: "at", RefreshToken: "rt",
		User: models.SessionUser{ID: "u", Email: "u@example.com"}}))
	require.NoError(t, s.SaveProblem("u", problem("https://leetcode.com/problems/two-sum/")))

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NotNil(t, reopened.Session())
	assert.Equal(t, "rt", reopened.Session().RefreshToken)
	assert.True(t, reopened.HasProblem("u", "https://leetcode.com/problems/two-sum/"))

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Nil(t, s.Session())
	assert.Empty(t, s.SavedProblems("u"))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path)
	assert.Error(t, err)
}
