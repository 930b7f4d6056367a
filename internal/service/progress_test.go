package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewProgress(t *testing.T) {
	tests := []struct {
		completed, total int
		want             int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 5, 20},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 5, 100},
	}
	for _, tt := range tests {
		p := NewProgress(tt.completed, tt.total)
		assert.Equal(t, tt.want, p.Percentage, "%d/%d", tt.completed, tt.total)
		assert.Equal(t, tt.total, p.Total)
		assert.Equal(t, tt.completed, p.Completed)
	}
}

func TestSummarize(t *testing.T) {
	a := domain.SessionExercise{ID: primitive.NewObjectID(), Name: "A", Order: 0}
	b := domain.SessionExercise{ID: primitive.NewObjectID(), Name: "B", Order: 1}
	empty := domain.SessionExercise{ID: primitive.NewObjectID(), Name: "Empty", Order: 2}
	c := domain.SessionExercise{ID: primitive.NewObjectID(), Name: "C", Order: 3}

	sets := []domain.Set{
		{SessionExerciseID: a.ID, SetNumber: 1, Completed: true},
		{SessionExerciseID: a.ID, SetNumber: 2, Completed: true},
		{SessionExerciseID: b.ID, SetNumber: 1, Completed: true},
		{SessionExerciseID: b.ID, SetNumber: 3, Completed: false},
		{SessionExerciseID: c.ID, SetNumber: 1, Completed: false},
	}
	exercises := []domain.SessionExercise{a, b, empty, c}

	current, progress := summarize(exercises, groupSets(sets))
	require.NotNil(t, current)
	assert.Equal(t, CurrentExercise{ID: b.ID, Name: "B", CompletedSets: 1, TotalSets: 2}, *current)
	assert.Equal(t, Progress{Total: 5, Completed: 3, Percentage: 60}, progress)

	for i := range sets {
		sets[i].Completed = true
	}
	current, progress = summarize(exercises, groupSets(sets))
	assert.Nil(t, current, "exercises without sets never become current")
	assert.Equal(t, 100, progress.Percentage)

	current, progress = summarize(nil, nil)
	assert.Nil(t, current)
	assert.Equal(t, Progress{}, progress)
}
