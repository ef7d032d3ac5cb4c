package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	course, err := store.UpsertCourse(ctx, "CS101", "Intro to CS")
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)
	require.NotZero(t, course.ID)

	exam, err := store.CreateExam(ctx, course.ID, "midterm", 2024, "/tmp/midterm.pdf")
	require.NoError(t, err)
	assert.Equal(t, course.ID, exam.CourseID)

	questions := []entity.ExtractedQuestion{
		{
			QuestionNumber: "2",
			QuestionType:   "MCQ",
			QuestionText:   "Pick one.",
			Options:        []string{"A", "B", "C"},
			PageNumber:     2,
			Confidence:     0.75,
			HasImage:       true,
		},
		{
			QuestionNumber:     "1",
			QuestionType:       "Subjective",
			QuestionText:       "Explain.",
			PageNumber:         1,
			Confidence:         1.0,
			SpansMultiplePages: true,
		},
	}
	saved, err := store.SaveQuestions(ctx, exam.ID, questions)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	got, err := store.ListQuestions(ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by page number regardless of insertion order.
	assert.Equal(t, "1", got[0].QuestionNumber)
	assert.True(t, got[0].SpansMultiplePages)
	assert.Equal(t, "2", got[1].QuestionNumber)
	assert.Equal(t, []string{"A", "B", "C"}, got[1].Options)
	assert.InDelta(t, 0.75, got[1].Confidence, 1e-9)
	assert.True(t, got[1].HasImage)
}

func TestSQLiteUpsertCourseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.UpsertCourse(ctx, "MA202", "Linear Algebra")
	require.NoError(t, err)

	second, err := store.UpsertCourse(ctx, "MA202", "Linear Algebra II")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Linear Algebra II", second.Name)
}

func TestSQLiteSaveQuestionsEmptyBatch(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	course, err := store.UpsertCourse(ctx, "PH100", "Physics")
	require.NoError(t, err)
	exam, err := store.CreateExam(ctx, course.ID, "final", 2023, "")
	require.NoError(t, err)

	saved, err := store.SaveQuestions(ctx, exam.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, saved)

	got, err := store.ListQuestions(ctx, exam.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Ping(ctx))
}
