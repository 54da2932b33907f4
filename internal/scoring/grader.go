package scoring

import "strings"

// Question is the grading view of a live question.
type Question struct {
	ID        string
	Points    int
	AnswerKey string
}

// GradeResult is the frozen outcome of one attempt.
type GradeResult struct {
	PointsEarned int
	TotalPoints  int
	Percentage   int
	Awarded      map[string]int
}

// Grade awards full points per question when the trimmed answer matches the trimmed key
// ignoring case. Missing answers score zero.
func Grade(questions []Question, answers map[string]string) GradeResult {
	result := GradeResult{Awarded: make(map[string]int, len(questions))}
	for _, q := range questions {
		result.TotalPoints += q.Points
		awarded := 0
		if answer, ok := answers[q.ID]; ok && matches(answer, q.AnswerKey) {
			awarded = q.Points
		}
		result.Awarded[q.ID] = awarded
		result.PointsEarned += awarded
	}
	result.Percentage = Percentage(result.PointsEarned, result.TotalPoints)
	return result
}

// Percentage truncates earned*100/total; zero totals give zero.
func Percentage(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return earned * 100 / total
}

func matches(answer, key string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(key))
}
