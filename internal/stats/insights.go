package stats

import (
	"fmt"
	"strings"
)

// Level is a coarse learner level derived from overall accuracy.
type Level string

const (
	LevelNovice       Level = "Novice"
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelExpert       Level = "Expert"
)

// LevelFor maps an accuracy in [0,1] onto a Level.
func LevelFor(accuracy float64) Level {
	switch {
	case accuracy >= 0.90:
		return LevelExpert
	case accuracy >= 0.80:
		return LevelAdvanced
	case accuracy >= 0.70:
		return LevelIntermediate
	case accuracy >= 0.60:
		return LevelBeginner
	default:
		return LevelNovice
	}
}

// Insights summarizes strengths, weaknesses and study advice.
type Insights struct {
	Level           Level    `json:"overall_level"`
	StrongTopics    []string `json:"strong_topics"`
	WeakTopics      []string `json:"weak_topics"`
	Recommendations []string `json:"recommendations"`
}

const (
	insightMinAttempts = 3
	strongCutoff       = 0.80
	weakCutoff         = 0.70
	insightTopN        = 3
)

// BuildInsights derives Insights from overall stats and topics sorted
// strongest first.
func BuildInsights(overall OverallStats, topics []TopicStat) Insights {
	in := Insights{
		Level:           LevelFor(overall.Accuracy()),
		StrongTopics:    []string{},
		WeakTopics:      []string{},
		Recommendations: []string{},
	}

	for i, t := range topics {
		if i >= insightTopN {
			break
		}
		if t.Attempts >= insightMinAttempts && t.Accuracy() > strongCutoff {
			in.StrongTopics = append(in.StrongTopics, t.Topic)
		}
	}
	start := max(len(topics)-insightTopN, 0)
	for _, t := range topics[start:] {
		if t.Attempts >= insightMinAttempts && t.Accuracy() < weakCutoff {
			in.WeakTopics = append(in.WeakTopics, t.Topic)
		}
	}

	acc := overall.Accuracy()
	switch {
	case acc < 0.5:
		in.Recommendations = append(in.Recommendations,
			"Start with easier questions to build confidence",
			"Review the source material before playing")
	case acc < 0.7:
		in.Recommendations = append(in.Recommendations,
			"Focus on the weak topics listed above",
			"Read the explanation of every wrong answer")
	default:
		in.Recommendations = append(in.Recommendations,
			"Challenge yourself with harder questions",
			"Try to finish a full run without a wrong answer")
	}
	if len(in.WeakTopics) > 0 {
		n := min(len(in.WeakTopics), 2)
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Extra study needed: %s", strings.Join(in.WeakTopics[:n], ", ")))
	}
	return in
}
