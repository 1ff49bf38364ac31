package service

import (
	"math"

	"github.com/lshigami/compliance/internal/model"
)

// QuestionScore is the outcome for one question.
type QuestionScore struct {
	QuestionID uint `json:"question_id"`
	Earned     int  `json:"earned"`
	Possible   int  `json:"possible"`
	Answered   bool `json:"answered"`
}

type ScoreResult struct {
	EarnedPoints int             `json:"earned_points"`
	TotalPoints  int             `json:"total_points"`
	Score        float64         `json:"score"`
	Questions    []QuestionScore `json:"questions"`
}

type ScoringService interface {
	Score(questions []model.Question, answers model.AttemptAnswers) ScoreResult
	Passed(score float64, passingScore int) bool
}

type scoringService struct{}

func NewScoringService() ScoringService {
	return &scoringService{}
}

func (s *scoringService) Score(questions []model.Question, answers model.AttemptAnswers) ScoreResult {
	var res ScoreResult
	for i := range questions {
		q := &questions[i]
		possible := q.DerivePoints()
		res.TotalPoints += possible

		answer, answered := answers[q.ID]
		answered = answered && hasSelection(q, answer)
		earned := 0
		if answered {
			earned = scoreQuestion(q, answer, possible)
		}
		res.EarnedPoints += earned
		res.Questions = append(res.Questions, QuestionScore{
			QuestionID: q.ID,
			Earned:     earned,
			Possible:   possible,
			Answered:   answered,
		})
	}
	if res.TotalPoints > 0 {
		res.Score = math.Round(10000*float64(res.EarnedPoints)/float64(res.TotalPoints)) / 100
	}
	return res
}

func (s *scoringService) Passed(score float64, passingScore int) bool {
	return score >= float64(passingScore)
}

func hasSelection(q *model.Question, a model.SubmittedAnswer) bool {
	if q.Type == model.QuestionMultiple {
		return len(model.NonEmpty(a.Values)) > 0
	}
	return a.Value != ""
}

func scoreQuestion(q *model.Question, a model.SubmittedAnswer, possible int) int {
	switch q.Type {
	case model.QuestionMultiple:
		return scoreMultiple(q, a.Values, possible)
	default:
		correct := model.NonEmpty(q.CorrectAnswers)
		if len(correct) == 1 && a.Value == correct[0] {
			return possible
		}
		return 0
	}
}

// scoreMultiple awards +1 per correct selection and -1 per wrong one, never
// below zero and never above the question's points. Repeated selections count once.
func scoreMultiple(q *model.Question, selected []string, possible int) int {
	correct := toSet(model.NonEmpty(q.CorrectAnswers))
	seen := make(map[string]struct{}, len(selected))
	sum := 0
	for _, sel := range model.NonEmpty(selected) {
		if _, dup := seen[sel]; dup {
			continue
		}
		seen[sel] = struct{}{}
		if _, ok := correct[sel]; ok {
			sum++
		} else {
			sum--
		}
	}
	if sum < 0 {
		return 0
	}
	if sum > possible {
		return possible
	}
	return sum
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
