package service

import (
	"fmt"
	"math"

	"github.com/noah-isme/fitness-admin-api/internal/models"
)

// adjustmentRule transforms a targets snapshot and yields a human-readable
// note describing the applied policy.
type adjustmentRule func(original models.KPITargets, durationDays int) (models.KPITargets, string)

type ruleKey struct {
	exception  models.ExceptionType
	adjustment models.AdjustmentType
}

// exactRules match a specific (exception, adjustment) pair.
var exactRules = map[ruleKey]adjustmentRule{
	{models.ExceptionInjury, models.AdjustmentReduction}: func(o models.KPITargets, _ int) (models.KPITargets, string) {
		return models.KPITargets{Run: roundKm(o.Run * 0.5), Swim: roundKm(o.Swim * 0.5)},
			"50% KPI reduction for injury"
	},
	{models.ExceptionInjury, models.AdjustmentExemption}: func(o models.KPITargets, _ int) (models.KPITargets, string) {
		return models.KPITargets{}, "Full KPI exemption for severe injury"
	},
	{models.ExceptionSwap, models.AdjustmentRunOnly}: func(o models.KPITargets, _ int) (models.KPITargets, string) {
		return models.KPITargets{Run: roundKm(o.Run * 2), Swim: 0},
			"Run only, swim zeroed, run doubled"
	},
	{models.ExceptionSwap, models.AdjustmentSwimOnly}: func(o models.KPITargets, _ int) (models.KPITargets, string) {
		return models.KPITargets{Run: 0, Swim: roundKm(o.Swim * 2)},
			"Swim only, run zeroed, swim doubled"
	},
}

// wideRules match an exception type regardless of adjustment type.
var wideRules = map[models.ExceptionType]adjustmentRule{
	models.ExceptionSickness: func(o models.KPITargets, durationDays int) (models.KPITargets, string) {
		factor := 0.3
		if durationDays > 15 {
			factor = 0.7
		}
		adjusted := models.KPITargets{
			Run:  roundKm(o.Run * (1 - factor)),
			Swim: roundKm(o.Swim * (1 - factor)),
		}
		return adjusted, fmt.Sprintf("%.0f%% KPI reduction for %d days of sickness", factor*100, durationDays)
	},
	models.ExceptionPregnancy: func(o models.KPITargets, _ int) (models.KPITargets, string) {
		return models.KPITargets{Run: 0, Swim: roundKm(o.Swim * 0.3)},
			"Run exempted, swim reduced 70% for pregnancy"
	},
}

// ComputeAdjustedTargets applies the adjustment rule table to the original
// targets. It is a pure function: unmatched combinations leave the targets
// unchanged with no notes. Exact (exception, adjustment) rules take
// precedence over exception-wide rules.
func ComputeAdjustedTargets(original models.KPITargets, exceptionType models.ExceptionType, adjustmentType models.AdjustmentType, durationDays int) models.AdjustmentResult {
	result := models.AdjustmentResult{
		Original: original,
		Adjusted: original,
		Notes:    []string{},
	}

	rule, ok := exactRules[ruleKey{exceptionType, adjustmentType}]
	if !ok {
		rule, ok = wideRules[exceptionType]
	}
	if ok {
		adjusted, note := rule(original, durationDays)
		result.Adjusted = adjusted
		result.Notes = append(result.Notes, note)
	}

	result.ReductionPercent = models.ReductionPercent{
		Run:  reductionPercent(original.Run, result.Adjusted.Run),
		Swim: reductionPercent(original.Swim, result.Adjusted.Swim),
	}
	return result
}

func roundKm(v float64) float64 {
	return math.Round(v)
}

// reductionPercent reports the relative reduction to one decimal place.
// A zero original target yields 0: no reduction can be measured against
// a target of nothing.
func reductionPercent(original, adjusted float64) float64 {
	if original == 0 {
		return 0
	}
	return math.Round((original-adjusted)/original*1000) / 10
}
