package attr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_FirstIDMatchesResumedFromOne(t *testing.T) {
	resumed, err := ResumeGenerator(1)
	require.NoError(t, err)
	assert.True(t, Equal(NewGenerator().Next(), resumed.Next()))
}

func TestGenerator_NextReturnsStoreID(t *testing.T) {
	id := NewGenerator().Next()
	assert.IsType(t, &StoreID{}, id)
	assert.False(t, id.Resolved())
}

func TestGenerator_SuccessiveIDsAreDistinctAndIncreasing(t *testing.T) {
	g := NewGenerator()
	prev := g.Next()
	for i := 0; i < 100; i++ {
		next := g.Next()
		assert.False(t, Equal(prev, next))
		assert.True(t, Less(prev, next))
		prev = next
	}
}

func TestGenerator_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewGenerator())
	require.NoError(t, err)
	assert.Equal(t, `{"next_id":1}`, string(data))
}

func TestGenerator_ParseGenerator(t *testing.T) {
	g, err := ParseGenerator([]byte(`{"next_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, NewGenerator().NextID(), g.NextID())

	g, err = ParseGenerator([]byte(`{"next_id":"42"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), g.NextID())
}

func TestGenerator_ParseGeneratorErrors(t *testing.T) {
	for _, in := range []string{`{}`, `{"next_id":0}`, `{"next_id":"x"}`, `[]`} {
		_, err := ParseGenerator([]byte(in))
		assert.Error(t, err, "input %s", in)
	}
}

func TestGenerator_SaveRestoreNeverReusesIDs(t *testing.T) {
	g := NewGenerator()
	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		seen[g.Next().Seq()] = true
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)

	restored, err := ParseGenerator(data)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		seq := restored.Next().Seq()
		assert.False(t, seen[seq], "sequence %d reused after restore", seq)
		seen[seq] = true
	}
}

func TestResumeGenerator_RejectsNonPositive(t *testing.T) {
	_, err := ResumeGenerator(0)
	assert.Error(t, err)
}
