package gradecalc

import (
	"math"
	"testing"

	"github.com/yourorg/classtrack/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestPercentage(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		maxScore int
		want     float64
		ok       bool
	}{
		{"basic", 80, 100, 80, true},
		{"half max", 40, 50, 80, true},
		{"over max", 55, 50, 110, true},
		{"zero score", 0, 100, 0, true},
		{"zero max", 80, 0, 0, false},
		{"negative max", 80, -10, 0, false},
		{"nan score", math.NaN(), 100, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Percentage(tt.score, tt.maxScore)
			if ok != tt.ok {
				t.Fatalf("Percentage(%v, %d) ok = %v, want %v", tt.score, tt.maxScore, ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Percentage(%v, %d) = %v, want %v", tt.score, tt.maxScore, got, tt.want)
			}
		})
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"80", 80, true},
		{" 72.5 ", 72.5, true},
		{"0", 0, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseScore(tt.raw)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseScore(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLetterAndBand(t *testing.T) {
	tests := []struct {
		pct    float64
		letter string
		band   Band
	}{
		{95, "A", BandExceptional},
		{90, "A", BandExceptional},
		{89.9, "B", BandGood},
		{80, "B", BandGood},
		{70, "C", BandSatisfactory},
		{60, "D", BandPassing},
		{59.9, "F", BandFailing},
		{0, "F", BandFailing},
	}
	for _, tt := range tests {
		if got := Letter(tt.pct); got != tt.letter {
			t.Errorf("Letter(%v) = %q, want %q", tt.pct, got, tt.letter)
		}
		if got := BandFor(tt.pct); got != tt.band {
			t.Errorf("BandFor(%v) = %q, want %q", tt.pct, got, tt.band)
		}
	}
}

func TestWeightedAverage(t *testing.T) {
	exam := &domain.GradeType{ID: "gt-exam", Name: "Exam", Weight: fptr(0.5), MaxScore: 100, IsActive: true}
	quiz := &domain.GradeType{ID: "gt-quiz", Name: "Quiz", Weight: fptr(0.5), MaxScore: 50, IsActive: true}
	practice := &domain.GradeType{ID: "gt-practice", Name: "Practice", Weight: nil, MaxScore: 10, IsActive: true}
	types := []*domain.GradeType{exam, quiz, practice}

	grades := []*domain.Grade{
		{GradeTypeID: "gt-exam", Percentage: 80},     // 80/100
		{GradeTypeID: "gt-quiz", Percentage: 80},     // 40/50
		{GradeTypeID: "gt-practice", Percentage: 10}, // nil weight, must be ignored
	}

	got, ok := WeightedAverage(grades, types)
	if !ok {
		t.Fatal("expected a weighted average")
	}
	if math.Abs(got-80) > 1e-9 {
		t.Fatalf("WeightedAverage = %v, want 80", got)
	}

	// Multiple entries of the same type are averaged within the group.
	grades = append(grades, &domain.Grade{GradeTypeID: "gt-quiz", Percentage: 60})
	got, _ = WeightedAverage(grades, types)
	want := 0.5*80 + 0.5*70
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("WeightedAverage = %v, want %v", got, want)
	}

	// Only nil-weight grades present: no weighted contribution at all.
	_, ok = WeightedAverage([]*domain.Grade{{GradeTypeID: "gt-practice", Percentage: 100}}, types)
	if ok {
		t.Fatal("nil-weight type must not produce a weighted average")
	}

	// A weighted type with no grades contributes nothing but does not block.
	got, ok = WeightedAverage([]*domain.Grade{{GradeTypeID: "gt-exam", Percentage: 90}}, types)
	if !ok || math.Abs(got-45) > 1e-9 {
		t.Fatalf("WeightedAverage = %v, %v; want 45, true", got, ok)
	}
}

func TestTotalWeight(t *testing.T) {
	types := []*domain.GradeType{
		{Weight: fptr(0.5), IsActive: true},
		{Weight: fptr(0.3), IsActive: true},
		{Weight: fptr(0.9), IsActive: false}, // inactive, excluded
		{Weight: nil, IsActive: true},        // informational, excluded
	}
	if got := TotalWeight(types); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("TotalWeight = %v, want 0.8", got)
	}
	if WeightsBalanced(types) {
		t.Fatal("0.8 should not report balanced")
	}
	types = append(types, &domain.GradeType{Weight: fptr(0.2), IsActive: true})
	if !WeightsBalanced(types) {
		t.Fatal("1.0 should report balanced")
	}
}
