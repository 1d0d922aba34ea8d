package writer

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/llm"
)

// Issue is one actionable deficiency found by the validator. Its Type
// feeds the fixer's fix-needs derivation.
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts both the typed object form and the legacy bare
// string form of a suggestion.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		i.Type = "suggestion"
		i.Message = s
		return nil
	}

	type plain Issue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Issue(p)
	return nil
}

// ValidationReport is the structured quality assessment of an article.
// The flat score fields and Suggestions mirror Scores and Issues for
// legacy consumers; both views always describe the same data.
type ValidationReport struct {
	Scores map[string]int `json:"scores"`
	HasFAQ bool           `json:"has_faq"`
	Issues []Issue        `json:"issues"`

	GrammarScore int      `json:"grammar_score"`
	HumanScore   int      `json:"human_score"`
	SEOScore     int      `json:"seo_score"`
	Suggestions  []string `json:"suggestions"`

	RawOutput string `json:"raw_output,omitempty"`
}

// newReport builds a report with both views populated from one source.
func newReport(grammar, human, seo int, hasFAQ bool, issues []Issue, rawOutput string) *ValidationReport {
	suggestions := make([]string, 0, len(issues))
	for _, issue := range issues {
		suggestions = append(suggestions, issue.Message)
	}

	return &ValidationReport{
		Scores:       map[string]int{"grammar": grammar, "human": human, "seo": seo},
		HasFAQ:       hasFAQ,
		Issues:       issues,
		GrammarScore: grammar,
		HumanScore:   human,
		SEOScore:     seo,
		Suggestions:  suggestions,
		RawOutput:    rawOutput,
	}
}

// degradedReport is the zeroed report returned when the model's output
// cannot be turned into a valid assessment.
func degradedReport(issueType, message, rawOutput string) *ValidationReport {
	return newReport(0, 0, 0, false, []Issue{{Type: issueType, Message: message}}, rawOutput)
}

// Validator scores generated content by asking a model for a structured
// quality report. Malformed model output never propagates: the caller
// always receives a usable, possibly degraded, report.
type Validator struct {
	client llm.Client
	model  string
	logger *zap.Logger

	// retryDelay is the base of the 2^attempt backoff between scoring
	// call retries.
	retryDelay time.Duration
}

// emptyRetries bounds the validator's own retry loop around the scoring
// call before degrading.
const emptyRetries = 3

// NewValidator constructs a validator. Model overrides the client default
// when non-empty.
func NewValidator(client llm.Client, model string, logger *zap.Logger) *Validator {
	return &Validator{client: client, model: model, logger: logger, retryDelay: time.Second}
}

// validatorPayload matches the JSON shape demanded by the scoring prompt.
type validatorPayload struct {
	GrammarScore int     `json:"grammar_score"`
	HumanScore   int     `json:"human_score"`
	SEOScore     int     `json:"seo_score"`
	HasFAQ       bool    `json:"has_faq"`
	Suggestions  []Issue `json:"suggestions"`
}

var requiredKeys = []string{"grammar_score", "human_score", "seo_score", "has_faq", "suggestions"}

// Validate scores the content. Model overrides both the validator's and
// the client's defaults when non-empty.
func (v *Validator) Validate(ctx context.Context, content, model string) *ValidationReport {
	if model == "" {
		model = v.model
	}

	v.logger.Info("starting content validation",
		zap.Int("content_length", len(content)),
		zap.String("model", model))

	temp := 0.3
	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: validatorPrompt},
			{Role: llm.RoleUser, Content: "다음 블로그 글을 평가해주세요:\n\n" + content},
		},
		Model:       model,
		MaxTokens:   800,
		Temperature: &temp,
	}

	var raw string
	for attempt := 0; attempt < emptyRetries; attempt++ {
		resp, err := v.client.Complete(ctx, req)
		if err != nil {
			v.logger.Error("validation call failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if attempt < emptyRetries-1 {
				if err := llm.Sleep(ctx, v.retryDelay<<attempt); err != nil {
					return degradedReport("validation_error", "검증 중 오류가 발생했습니다.", "")
				}
				continue
			}
			return degradedReport("validation_error", "검증 중 오류가 발생했습니다.", "")
		}
		raw = resp.Content
		break
	}

	return v.parse(raw)
}

// parse extracts and schema-checks the report from free-form model text.
func (v *Validator) parse(raw string) *ValidationReport {
	object, ok := llm.ExtractJSONObject(raw)
	if !ok {
		v.logger.Error("no valid JSON found in validation response")
		return degradedReport("parse_error", "응답 파싱 실패", raw)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(object), &keys); err != nil {
		v.logger.Error("validation JSON parse failed", zap.Error(err))
		return degradedReport("parse_error", "JSON 파싱 실패: "+err.Error(), raw)
	}
	for _, key := range requiredKeys {
		if _, present := keys[key]; !present {
			v.logger.Error("validation response missing required key",
				zap.String("key", key))
			return degradedReport("parse_error", "응답 구조 오류", raw)
		}
	}

	var payload validatorPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		v.logger.Error("validation JSON parse failed", zap.Error(err))
		return degradedReport("parse_error", "JSON 파싱 실패: "+err.Error(), raw)
	}

	report := newReport(payload.GrammarScore, payload.HumanScore, payload.SEOScore,
		payload.HasFAQ, payload.Suggestions, raw)

	v.logger.Info("validation completed",
		zap.Int("grammar", report.GrammarScore),
		zap.Int("human", report.HumanScore),
		zap.Int("seo", report.SEOScore),
		zap.Bool("has_faq", report.HasFAQ))

	return report
}
