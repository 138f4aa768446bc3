package app

import (
	"github.com/shopspring/decimal"

	"qcm-service/internal/domain"
)

// ComputeStatistics aggregates the results of one quiz. An empty input yields
// zero values everywhere.
func ComputeStatistics(results []domain.Result) domain.Statistics {
	if len(results) == 0 {
		return domain.Statistics{AverageTimeFormatted: domain.FormatDuration(0)}
	}

	var (
		dist     domain.ScoreDistribution
		scoreSum = decimal.Zero
		timeSum  = decimal.Zero
		passed   int
		best     = results[0].Percentage
		worst    = results[0].Percentage
		attempts = decimal.NewFromInt(int64(len(results)))
		hundred  = decimal.NewFromInt(100)
	)
	for _, r := range results {
		scoreSum = scoreSum.Add(decimal.NewFromFloat(r.Percentage))
		timeSum = timeSum.Add(decimal.NewFromInt(r.ElapsedSeconds))
		if r.IsPassed() {
			passed++
		}
		if r.Percentage > best {
			best = r.Percentage
		}
		if r.Percentage < worst {
			worst = r.Percentage
		}
		switch r.Grade() {
		case domain.GradeExcellent:
			dist.Excellent++
		case domain.GradeVeryGood:
			dist.VeryGood++
		case domain.GradeGood:
			dist.Good++
		case domain.GradePassable:
			dist.Passable++
		default:
			dist.Insufficient++
		}
	}

	avgTime := timeSum.Div(attempts).Round(0).IntPart()
	return domain.Statistics{
		TotalAttempts:        len(results),
		AverageScore:         scoreSum.Div(attempts).Round(2).InexactFloat64(),
		PassRate:             decimal.NewFromInt(int64(passed)).Mul(hundred).Div(attempts).Round(2).InexactFloat64(),
		AverageTimeSeconds:   avgTime,
		AverageTimeFormatted: domain.FormatDuration(avgTime),
		Distribution:         dist,
		BestScore:            best,
		WorstScore:           worst,
	}
}
