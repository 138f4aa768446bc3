package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scores are expressed on a 0-20 scale.
const (
	ScoreScale    = 20
	PassThreshold = 10.0

	excellentFloor = 16.0
	veryGoodFloor  = 14.0
	goodFloor      = 12.0
)

// Grade is a score band. Lower bounds are inclusive, upper bounds exclusive.
type Grade string

const (
	GradeExcellent    Grade = "excellent"
	GradeVeryGood     Grade = "very_good"
	GradeGood         Grade = "good"
	GradePassable     Grade = "passable"
	GradeInsufficient Grade = "insufficient"
)

// GradeFor maps a 0-20 percentage to its band.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= excellentFloor:
		return GradeExcellent
	case percentage >= veryGoodFloor:
		return GradeVeryGood
	case percentage >= goodFloor:
		return GradeGood
	case percentage >= PassThreshold:
		return GradePassable
	default:
		return GradeInsufficient
	}
}

// Label is the display name of the band.
func (g Grade) Label() string {
	switch g {
	case GradeExcellent:
		return "Excellent"
	case GradeVeryGood:
		return "Very Good"
	case GradeGood:
		return "Good"
	case GradePassable:
		return "Passable"
	default:
		return "Insufficient"
	}
}

var feedbackBodies = map[Grade]string{
	GradeExcellent:    "Excellent work! You have mastered the subject.",
	GradeVeryGood:     "Very good work! You have a solid understanding of the subject.",
	GradeGood:         "Good work! Keep up the effort to deepen your knowledge.",
	GradePassable:     "Passable result. Reviewing some concepts would be beneficial.",
	GradeInsufficient: "Reviewing the course material and practicing more on this subject is recommended.",
}

// Feedback renders the deterministic feedback sentence stored on a result.
func Feedback(percentage float64, correctCount, totalCount int) string {
	return fmt.Sprintf("%d correct answer(s) out of %d questions. %s",
		correctCount, totalCount, feedbackBodies[GradeFor(percentage)])
}

// ScorePercentage converts earned/total points to the 0-20 scale, rounded to
// two decimals. A zero total yields 0.
func ScorePercentage(pointsEarned, totalPoints int) float64 {
	if totalPoints <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(pointsEarned)).
		Mul(decimal.NewFromInt(ScoreScale)).
		Div(decimal.NewFromInt(int64(totalPoints))).
		Round(2).
		InexactFloat64()
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatDuration renders seconds as zero-padded HH:MM:SS. Negative values
// render as 00:00:00.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
