package utils

import (
	"fmt"
	"math"
	"strings"

	"nutrition/models"
)

// WarningSeverity categorizes how serious the flag is.
type WarningSeverity string

const (
	Info    WarningSeverity = "info"
	Caution WarningSeverity = "caution"
	High    WarningSeverity = "high"
)

// Warning is a structured finding shown next to the food analysis.
type Warning struct {
	Code      string          `json:"code"`
	Severity  WarningSeverity `json:"severity"`
	Message   string          `json:"message"`
	Metric    string          `json:"metric,omitempty"`
	Value     float64         `json:"value,omitempty"`
	Limit     float64         `json:"limit,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// MacroShare is the percentage of energy each macronutrient contributes.
type MacroShare struct {
	Carbohydrate float64 `json:"carbohydrate"`
	Fat          float64 `json:"fat"`
	Protein      float64 `json:"protein"`
}

type Assessment struct {
	FoodID           int64              `json:"foodId"`
	Name             string             `json:"name"`
	ServingSize      models.ServingSize `json:"servingSize"`
	DeclaredCalories float64            `json:"declaredCalories"`
	MacroCalories    float64            `json:"macroCalories"`
	CalorieMismatch  bool               `json:"calorieMismatch"`
	EnergyShare      MacroShare         `json:"energyShare"`
	Warnings         []Warning          `json:"warnings"`
}

const (
	kcalPerGramCarb    = 4.0
	kcalPerGramProtein = 4.0
	kcalPerGramFat     = 9.0

	// AMDR upper/lower bounds, percent of energy.
	fatShareLimit     = 35.0
	carbShareLimit    = 65.0
	proteinShareFloor = 10.0

	mismatchTolerance = 0.20
)

// AssessFood derives energy figures from the macronutrients and flags
// compositions outside the acceptable macronutrient distribution ranges.
func AssessFood(f *models.Food) Assessment {
	n := f.Nutrition
	out := Assessment{
		FoodID:           f.ID,
		Name:             f.Name,
		ServingSize:      n.ServingSize,
		DeclaredCalories: n.Calories,
		Warnings:         []Warning{},
	}

	macroKcal := energyFromMacros(n.Carbohydrate, n.Protein, n.Fat)
	out.MacroCalories = round2(macroKcal)

	if macroKcal > 0 {
		out.EnergyShare = MacroShare{
			Carbohydrate: round2(kcalPerGramCarb * n.Carbohydrate / macroKcal * 100),
			Fat:          round2(kcalPerGramFat * n.Fat / macroKcal * 100),
			Protein:      round2(kcalPerGramProtein * n.Protein / macroKcal * 100),
		}
	}

	if n.Calories > 0 && macroKcal > 0 {
		diff := math.Abs(macroKcal-n.Calories) / n.Calories
		if diff > mismatchTolerance {
			out.CalorieMismatch = true
			out.Warnings = append(out.Warnings, Warning{
				Code:     "calorie_mismatch",
				Severity: Info,
				Message: fmt.Sprintf("Declared calories (%.0f kcal) differ from macronutrient energy (%.0f kcal) by %.0f%%.",
					n.Calories, macroKcal, diff*100),
				Metric: "calorie_difference_%",
				Value:  round2(diff * 100),
				Limit:  mismatchTolerance * 100,
			})
		}
	}

	share := out.EnergyShare
	if share.Fat > fatShareLimit {
		out.Warnings = append(out.Warnings, Warning{
			Code:      "fat_share_high",
			Severity:  High,
			Message:   fmt.Sprintf("High fat for this item (%.0f%% of its calories).", share.Fat),
			Metric:    "fat_%_of_item_kcal",
			Value:     share.Fat,
			Limit:     fatShareLimit,
			Reference: amdrRef("fat 20–35% of energy"),
		})
	}
	if share.Carbohydrate > carbShareLimit {
		out.Warnings = append(out.Warnings, Warning{
			Code:      "carbohydrate_share_high",
			Severity:  Caution,
			Message:   fmt.Sprintf("Carbohydrate-heavy item (%.0f%% of its calories).", share.Carbohydrate),
			Metric:    "carbohydrate_%_of_item_kcal",
			Value:     share.Carbohydrate,
			Limit:     carbShareLimit,
			Reference: amdrRef("carbohydrate 45–65% of energy"),
		})
	}
	if macroKcal > 100 && share.Protein < proteinShareFloor {
		out.Warnings = append(out.Warnings, Warning{
			Code:      "protein_share_low",
			Severity:  Info,
			Message:   fmt.Sprintf("Low protein for an energy-dense item (%.0f%% of its calories).", share.Protein),
			Metric:    "protein_%_of_item_kcal",
			Value:     share.Protein,
			Limit:     proteinShareFloor,
			Reference: amdrRef("protein 10–35% of energy"),
		})
	}
	if looksHighSatSource(strings.ToLower(f.Name)) {
		out.Warnings = append(out.Warnings, Warning{
			Code:     "satfat_source_heuristic",
			Severity: Info,
			Message:  "Likely high in saturated fat (e.g., butter/cream/fatty meats); consider leaner cuts or plant oils.",
		})
	}
	return out
}

func energyFromMacros(carbG, protG, fatG float64) float64 {
	if carbG <= 0 && protG <= 0 && fatG <= 0 {
		return 0
	}
	return kcalPerGramCarb*carbG + kcalPerGramProtein*protG + kcalPerGramFat*fatG
}

func amdrRef(where string) string {
	return "Acceptable Macronutrient Distribution Ranges: " + where
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func looksHighSatSource(name string) bool {
	return containsAny(name,
		"butter", "ghee", "cream", "cheese", "bacon", "sausage", "shortening",
		"palm oil", "palm kernel", "coconut oil", "lard")
}
