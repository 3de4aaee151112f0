package risk

import (
	"math"

	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

// fatigue findings weigh probability*weightFatigue instead of a severity weight
const (
	weightHigh    = 40
	weightMedium  = 20
	weightLow     = 8
	weightFatigue = 40
)

// Score sums finding weights, capped at 100, and buckets the total into a level.
func Score(fs []models.RiskFinding) (float64, models.RiskLevel) {
	var total float64
	for _, f := range fs {
		total += weight(f)
	}
	total = utils.Round2(math.Min(100, total))
	return total, Level(total)
}

func Level(score float64) models.RiskLevel {
	switch {
	case score < 25:
		return models.RiskGreen
	case score < 60:
		return models.RiskYellow
	}
	return models.RiskRed
}

func weight(f models.RiskFinding) float64 {
	if f.Kind == models.RiskCreativeFatigue {
		return f.Probability * weightFatigue
	}
	switch f.Severity {
	case models.SeverityHigh:
		return weightHigh
	case models.SeverityMedium:
		return weightMedium
	case models.SeverityLow:
		return weightLow
	}
	return 0
}
