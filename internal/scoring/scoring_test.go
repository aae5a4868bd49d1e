package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

func strptr(s string) *string { return &s }

func mcQuestion(correct string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeMultipleChoice,
		CorrectAnswer: strptr(correct),
	}
}

func openQuestion(t model.QuestionType) model.Question {
	return model.Question{ID: uuid.New(), Type: t}
}

func TestScoreHalfCorrect(t *testing.T) {
	q1 := mcQuestion("B")
	q2 := mcQuestion("A")
	questions := []model.Question{q1, q2}

	answers := map[uuid.UUID]string{
		q1.ID: "B",
		q2.ID: "C",
	}

	if got := Score(questions, answers); got != 50 {
		t.Fatalf("Score = %d, want 50", got)
	}
}

func TestScoreNoGradeableQuestions(t *testing.T) {
	questions := []model.Question{
		openQuestion(model.QuestionTypeOpenText),
		openQuestion(model.QuestionTypeCode),
	}
	answers := map[uuid.UUID]string{
		questions[0].ID: "some essay",
		questions[1].ID: "func main() {}",
	}

	if got := Score(questions, answers); got != 0 {
		t.Fatalf("Score = %d, want 0 for zero gradeable questions", got)
	}
}

func TestScoreExactMatchOnly(t *testing.T) {
	q := mcQuestion("Go")
	questions := []model.Question{q}

	cases := []struct {
		name   string
		answer string
		want   int
	}{
		{"exact", "Go", 100},
		{"case mismatch", "go", 0},
		{"trailing space", "Go ", 0},
		{"unanswered", "", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answers := map[uuid.UUID]string{}
			if tc.answer != "" {
				answers[q.ID] = tc.answer
			}
			if got := Score(questions, answers); got != tc.want {
				t.Fatalf("Score(%q) = %d, want %d", tc.answer, got, tc.want)
			}
		})
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	// 1 of 3 correct = 33.33 → 33; 2 of 3 = 66.67 → 67; 1 of 8 = 12.5 → 13.
	cases := []struct {
		gradeable int
		correct   int
		want      int
	}{
		{3, 1, 33},
		{3, 2, 67},
		{8, 1, 13},
		{8, 7, 88},
	}

	for _, tc := range cases {
		questions := make([]model.Question, 0, tc.gradeable)
		answers := map[uuid.UUID]string{}
		for i := 0; i < tc.gradeable; i++ {
			q := mcQuestion("X")
			questions = append(questions, q)
			if i < tc.correct {
				answers[q.ID] = "X"
			} else {
				answers[q.ID] = "Y"
			}
		}
		if got := Score(questions, answers); got != tc.want {
			t.Fatalf("Score(%d/%d) = %d, want %d", tc.correct, tc.gradeable, got, tc.want)
		}
	}
}

func TestScoreIgnoresNonGradeable(t *testing.T) {
	// Mixed paper: one gradeable answered correctly plus two ungraded
	// questions. The score must be 100, not diluted by the ungraded ones.
	q := mcQuestion("B")
	questions := []model.Question{
		q,
		openQuestion(model.QuestionTypeCode),
		openQuestion(model.QuestionTypeOpenText),
	}
	answers := map[uuid.UUID]string{q.ID: "B"}

	if got := Score(questions, answers); got != 100 {
		t.Fatalf("Score = %d, want 100", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	q1 := mcQuestion("1")
	q2 := mcQuestion("2")
	q3 := openQuestion(model.QuestionTypeOpenText)
	questions := []model.Question{q1, q2, q3}
	answers := map[uuid.UUID]string{q1.ID: "1", q3.ID: "essay"}

	first := Score(questions, answers)
	for i := 0; i < 100; i++ {
		if got := Score(questions, answers); got != first {
			t.Fatalf("Score not deterministic: %d then %d", first, got)
		}
	}
	if first < 0 || first > 100 {
		t.Fatalf("Score %d out of [0,100]", first)
	}
}
