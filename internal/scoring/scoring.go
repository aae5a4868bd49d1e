// Package scoring computes the objective score of an assessment attempt.
//
// Only gradeable questions (those with a correct answer on record) contribute
// to the score; CODE and OPEN_TEXT questions without one are recorded
// artifacts for downstream review and never move the number. An assessment
// with zero gradeable questions scores 0.
package scoring

import (
	"math"

	"github.com/google/uuid"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// Score returns an integer score in [0, 100].
//
// A gradeable question is correct when the recorded answer matches the
// expected answer exactly: case-sensitive, no trimming. The ratio of correct
// to gradeable questions is scaled to 100 and rounded half-up.
func Score(questions []model.Question, answers map[uuid.UUID]string) int {
	gradeable := 0
	correct := 0

	for i := range questions {
		q := &questions[i]
		if !q.Gradeable() {
			continue
		}
		gradeable++
		if ans, ok := answers[q.ID]; ok && ans == *q.CorrectAnswer {
			correct++
		}
	}

	if gradeable == 0 {
		return 0
	}

	return int(math.Floor(100*float64(correct)/float64(gradeable) + 0.5))
}
