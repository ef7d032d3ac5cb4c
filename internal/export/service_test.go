package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

func TestQuestionsXLSX(t *testing.T) {
	questions := []entity.ExtractedQuestion{
		{
			QuestionNumber: "1",
			QuestionType:   "MCQ",
			QuestionText:   "Which layer routes packets?",
			Options:        []string{"Physical", "Network", "Session"},
			PageNumber:     1,
			Confidence:     0.95,
		},
		{
			QuestionNumber:     "2",
			QuestionType:       "Subjective",
			QuestionText:       "Derive the update rule.",
			PageNumber:         2,
			Confidence:         0.8,
			SpansMultiplePages: true,
		},
	}

	out, err := QuestionsXLSX(questions)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Questions")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 questions

	assert.Equal(t, "Page", rows[0][0])
	assert.Equal(t, "Statement", rows[0][3])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "MCQ", rows[1][2])
	assert.Equal(t, "Which layer routes packets?", rows[1][3])
	assert.Equal(t, "Physical | Network | Session", rows[1][4])

	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "Derive the update rule.", rows[2][3])
	assert.Equal(t, "TRUE", rows[2][7])
}

func TestQuestionsXLSXEmpty(t *testing.T) {
	out, err := QuestionsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Questions")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
