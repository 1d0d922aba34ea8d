// Package keyword extracts SEO keyword suggestions for a blog topic by
// asking a model for a structured keyword list, enriching and clamping
// the metrics, and falling back to heuristic generation when the model
// output is unusable.
package keyword

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/llm"
)

const analyzerPrompt = `You are an SEO keyword research expert specializing in Korean and English markets.

Your task is to analyze a given blog topic and extract relevant SEO keywords with the following characteristics:
1. Primary keywords (high search volume, moderate competition)
2. Long-tail keywords (specific phrases, lower competition)
3. Related semantic keywords
4. Question-based keywords

For each keyword, provide:
- The keyword phrase
- Estimated search volume (realistic numbers)
- Competition level (0.0 to 1.0, where 1.0 is highest)
- SEO difficulty (0.0 to 1.0, where 1.0 is hardest to rank)

Return ONLY a valid JSON array with this exact structure:
[
  {
    "keyword": "keyword phrase",
    "search_volume": 15000,
    "competition": 0.45,
    "difficulty": 0.6,
    "type": "primary|long-tail|semantic|question"
  }
]

IMPORTANT:
- Return 10-20 keywords
- Mix different types (primary, long-tail, semantic, question)
- Use realistic search volumes (100-100000 range)
- Competition and difficulty should be between 0.0 and 1.0
- NO explanations, NO markdown, ONLY the JSON array`

// Keyword is one suggestion with its estimated metrics. The metrics are
// model estimates, not measured search data.
type Keyword struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int     `json:"search_volume"`
	Competition  float64 `json:"competition"`
	Difficulty   float64 `json:"difficulty"`
	Type         string  `json:"type"`
}

// Analyzer produces keyword suggestions for a topic. Single-call with the
// adapter's retry, no fallback chain; unusable model output degrades to
// heuristic generation instead of an error.
type Analyzer struct {
	client llm.Client
	logger *zap.Logger
}

// NewAnalyzer constructs a keyword analyzer over the given client.
func NewAnalyzer(client llm.Client, logger *zap.Logger) *Analyzer {
	return &Analyzer{client: client, logger: logger}
}

type wireKeyword struct {
	Keyword      string   `json:"keyword"`
	SearchVolume *float64 `json:"search_volume"`
	Competition  *float64 `json:"competition"`
	Difficulty   *float64 `json:"difficulty"`
	Type         string   `json:"type"`
}

// Analyze returns up to maxResults keywords for the topic, sorted by
// search volume descending.
func (a *Analyzer) Analyze(ctx context.Context, topic string, maxResults int) []Keyword {
	if maxResults <= 0 {
		maxResults = 10
	}

	a.logger.Info("starting keyword analysis", zap.String("topic", topic))

	userPrompt := "Topic: " + topic + `

Extract SEO keywords for this topic. Focus on:
1. Main keywords that best represent this topic
2. Long-tail variations with specific intent
3. Related semantic keywords
4. Common questions people search

Return the JSON array with 10-20 keywords.`

	temp := 0.3
	resp, err := a.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: analyzerPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		MaxTokens:   2000,
		Temperature: &temp,
	})
	if err != nil {
		a.logger.Warn("keyword analysis call failed, using heuristic fallback",
			zap.String("topic", topic),
			zap.Error(err))
		return fallbackKeywords(topic, maxResults)
	}

	keywords, ok := parseKeywords(resp.Content)
	if !ok {
		a.logger.Warn("keyword analysis output unusable, using heuristic fallback",
			zap.String("topic", topic))
		return fallbackKeywords(topic, maxResults)
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].SearchVolume > keywords[j].SearchVolume
	})
	if len(keywords) > maxResults {
		keywords = keywords[:maxResults]
	}

	a.logger.Info("keyword analysis completed",
		zap.String("topic", topic),
		zap.Int("count", len(keywords)))
	return keywords
}

// parseKeywords extracts and normalizes the keyword array from free-form
// model output.
func parseKeywords(raw string) ([]Keyword, bool) {
	array, ok := llm.ExtractJSONArray(raw)
	if !ok {
		return nil, false
	}

	var wire []wireKeyword
	if err := json.Unmarshal([]byte(array), &wire); err != nil {
		return nil, false
	}
	if len(wire) == 0 {
		return nil, false
	}

	keywords := make([]Keyword, 0, len(wire))
	for _, w := range wire {
		phrase := strings.TrimSpace(w.Keyword)
		if phrase == "" {
			continue
		}

		kw := Keyword{
			Keyword:      phrase,
			SearchVolume: 1000,
			Competition:  0.5,
			Difficulty:   0.5,
			Type:         "primary",
		}
		if w.SearchVolume != nil {
			kw.SearchVolume = int(math.Max(0, *w.SearchVolume))
		}
		if w.Competition != nil {
			kw.Competition = clamp01(round2(*w.Competition))
		}
		if w.Difficulty != nil {
			kw.Difficulty = clamp01(round2(*w.Difficulty))
		}
		if w.Type != "" {
			kw.Type = w.Type
		}

		keywords = append(keywords, kw)
	}

	if len(keywords) == 0 {
		return nil, false
	}
	return keywords, true
}

// fallbackKeywords generates keyword variations from the topic itself when
// the model cannot be used. Metrics are rough heuristics.
func fallbackKeywords(topic string, maxResults int) []Keyword {
	words := strings.Fields(topic)
	keywords := []Keyword{{
		Keyword:      topic,
		SearchVolume: 5000 + rand.Intn(15001),
		Competition:  0.6,
		Difficulty:   0.7,
		Type:         "primary",
	}}

	if len(words) >= 2 {
		keywords = append(keywords, Keyword{
			Keyword:      strings.Join(words[:2], " "),
			SearchVolume: 10000 + rand.Intn(40001),
			Competition:  0.75,
			Difficulty:   0.8,
			Type:         "primary",
		})
	}

	for _, prefix := range []string{"어떻게", "방법", "가이드", "튜토리얼"} {
		if len(keywords) >= maxResults {
			break
		}
		keywords = append(keywords, Keyword{
			Keyword:      prefix + " " + topic,
			SearchVolume: 500 + rand.Intn(2501),
			Competition:  0.3,
			Difficulty:   0.4,
			Type:         "long-tail",
		})
	}

	for len(keywords) < maxResults {
		keywords = append(keywords, Keyword{
			Keyword:      topic + " 예제",
			SearchVolume: 1000 + rand.Intn(9001),
			Competition:  round2(0.3 + rand.Float64()*0.4),
			Difficulty:   round2(0.4 + rand.Float64()*0.3),
			Type:         "semantic",
		})
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].SearchVolume > keywords[j].SearchVolume
	})
	if len(keywords) > maxResults {
		keywords = keywords[:maxResults]
	}
	return keywords
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
