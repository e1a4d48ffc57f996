package extract

import (
	"regexp"
	"strings"
)

// DefaultConfidenceThreshold is the confidence below which an extraction is
// always flagged for review.
const DefaultConfidenceThreshold = 0.75

// defaultDiscretionaryPatterns match statute language that defeats rigid rule
// extraction: board discretion, case-by-case handling, and waiver language.
var defaultDiscretionaryPatterns = []string{
	`board('s)? discretion`,
	`discretion of the (board|commission|department)`,
	`at (its|their) discretion`,
	`case.by.case`,
	`may (waive|be waived|grant a waiver)`,
	`waiver`,
	`hardship`,
	`subject to( the)? approval`,
	`upon written request`,
}

// ReviewConfig is the immutable configuration for the review-flag decision.
// It is passed in explicitly so the evaluator is testable with injected
// thresholds and patterns.
type ReviewConfig struct {
	ConfidenceThreshold   float64
	DiscretionaryPatterns []*regexp.Regexp
}

// DefaultReviewConfig returns the production review configuration.
func DefaultReviewConfig() ReviewConfig {
	return NewReviewConfig(DefaultConfidenceThreshold, defaultDiscretionaryPatterns)
}

// NewReviewConfig compiles the given patterns case-insensitively. Patterns
// that do not compile are skipped rather than failing construction.
func NewReviewConfig(threshold float64, patterns []string) ReviewConfig {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return ReviewConfig{
		ConfidenceThreshold:   threshold,
		DiscretionaryPatterns: compiled,
	}
}

// ReviewSignals are the independent inputs to the review decision.
type ReviewSignals struct {
	ParseFailed        bool
	Violations         []string
	Confidence         *float64
	RequestStateCode   string
	ExtractedStateCode string
	SourceText         string
	ModelFlagged       *bool
}

// NeedsReview ORs all signals: any single one is sufficient to flag the
// extraction for human review. The bias is deliberately conservative - an
// unnecessary review beats a wrong rule silently trusted.
func (c ReviewConfig) NeedsReview(s ReviewSignals) bool {
	if s.ParseFailed {
		return true
	}
	if len(s.Violations) > 0 {
		return true
	}
	if s.Confidence == nil || *s.Confidence < c.ConfidenceThreshold {
		return true
	}
	if !strings.EqualFold(s.RequestStateCode, s.ExtractedStateCode) {
		return true
	}
	if c.matchesDiscretionaryLanguage(s.SourceText) {
		return true
	}
	if s.ModelFlagged != nil && *s.ModelFlagged {
		return true
	}
	return false
}

func (c ReviewConfig) matchesDiscretionaryLanguage(text string) bool {
	for _, re := range c.DiscretionaryPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
