// Package triage classifies free-text symptom descriptions into an urgency
// category, an urgency score on a 0-10 scale, and a predicted consultation
// time. It is a pure keyword lookup with no external dependencies, consumed
// once at booking time.
package triage

import (
	"sort"
	"strings"

	"clinic-scheduler/internal/models"
)

type category struct {
	name        string
	keywords    []string
	baseMinutes int
	urgency     int
}

var categories = []category{
	{"routine_checkup", []string{"checkup", "routine", "physical", "annual", "preventive"}, 12, 1},
	{"minor_illness", []string{"fever", "cold", "cough", "headache", "sore throat", "runny nose", "sneezing"}, 8, 2},
	{"digestive_issues", []string{"stomach", "nausea", "vomiting", "diarrhea", "constipation", "indigestion"}, 15, 3},
	{"pain_management", []string{"pain", "ache", "joint", "back", "muscle", "arthritis", "injury"}, 18, 4},
	{"skin_conditions", []string{"rash", "itching", "skin", "allergy", "eczema", "acne"}, 13, 2},
	{"respiratory", []string{"breathing", "asthma", "shortness", "chest", "wheezing"}, 20, 6},
	{"serious_symptoms", []string{"severe", "intense", "unbearable", "chronic", "persistent", "blood"}, 25, 8},
	{"emergency", []string{"emergency", "urgent", "critical", "severe pain", "heart", "stroke", "accident"}, 30, 10},
}

var complexityIndicators = []string{
	"multiple", "several", "chronic", "persistent", "recurring",
	"severe", "intense", "unbearable", "worsening", "complicated",
}

// Analysis is the classifier output for one symptom description.
type Analysis struct {
	Urgency          models.Urgency
	IsEmergency      bool
	ComplexityFactor float64
	Matched          []string
}

// Classify analyzes a symptom description. Unmatched text falls back to a
// general consultation with mid-range urgency.
func Classify(symptoms string) Analysis {
	text := strings.ToLower(symptoms)

	var matched []category
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, c)
				break
			}
		}
	}

	name := "general_consultation"
	minutes := 15
	urgency := 3
	if len(matched) > 0 {
		// Highest-urgency match wins.
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].urgency > matched[j].urgency
		})
		name = matched[0].name
		minutes = matched[0].baseMinutes
		urgency = matched[0].urgency
	}

	factor := complexityFactor(text)
	names := make([]string, len(matched))
	for i, c := range matched {
		names[i] = c.name
	}

	return Analysis{
		Urgency: models.Urgency{
			Category:       name,
			Score:          urgency,
			ConsultMinutes: int(float64(minutes) * factor),
		},
		IsEmergency:      urgency >= 9,
		ComplexityFactor: factor,
		Matched:          names,
	}
}

// complexityFactor stretches the consultation estimate when the description
// signals a complicated presentation.
func complexityFactor(text string) float64 {
	count := 0
	for _, ind := range complexityIndicators {
		if strings.Contains(text, ind) {
			count++
		}
	}
	switch {
	case count == 0:
		return 1.0
	case count <= 2:
		return 1.3
	default:
		return 1.6
	}
}
