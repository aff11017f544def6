package datalake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	t.Run("empty report is ok", func(t *testing.T) {
		var r Report
		assert.True(t, r.OK())
		assert.NoError(t, r.Err())
		assert.Equal(t, "nothing to do", r.Summary())
	})

	t.Run("already exists is not a failure", func(t *testing.T) {
		var r Report
		r.Add(Succeeded(KindBucket, "lake"), AlreadyExists(KindDatabase, "db"))
		assert.True(t, r.OK())
		assert.Empty(t, r.Failed())
		assert.Equal(t, "1 succeeded, 1 already-exists", r.Summary())
	})

	t.Run("failures are counted and reported", func(t *testing.T) {
		var r Report
		r.Add(Succeeded(KindObject, "raw/a.json"))
		r.Add(Failed(KindObject, "raw/b.json", errors.New("access denied")))
		r.Merge(Report{Outcomes: []Outcome{Succeeded(KindBucket, "lake")}})

		assert.False(t, r.OK())
		assert.Equal(t, 2, r.Count(StatusSucceeded))
		assert.Equal(t, 1, r.Count(StatusFailed))
		assert.Len(t, r.Of(KindObject), 2)
		assert.Equal(t, "2 succeeded, 1 failed", r.Summary())

		err := r.Err()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 3 operations failed")
		assert.Contains(t, err.Error(), "object raw/b.json: failed: access denied")
	})

	t.Run("outcomes keep their order", func(t *testing.T) {
		var r Report
		r.Add(Succeeded(KindTable, "a"), Succeeded(KindTable, "b"))
		r.Add(Succeeded(KindTable, "c"))
		names := []string{}
		for _, o := range r.Outcomes {
			names = append(names, o.Name)
		}
		assert.Equal(t, []string{"a", "b", "c"}, names)
	})
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "bucket lake: succeeded", Succeeded(KindBucket, "lake").String())
	assert.Equal(t, "table t: failed: boom", Failed(KindTable, "t", errors.New("boom")).String())
}
