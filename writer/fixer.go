package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/llm"
)

// FixMetadata carries optional style hints for the repair rewrite.
type FixMetadata struct {
	FocusKeyphrase string `json:"focus_keyphrase"`
	Language       string `json:"language"`
	Style          string `json:"style"`
}

// FixResult is the outcome of one fix invocation. Created per call and
// owned by the caller; never persisted.
type FixResult struct {
	FixedContent   string   `json:"fixed_content"`
	FixSummary     []string `json:"fix_summary"`
	AddedFAQ       bool     `json:"added_faq"`
	KeywordDensity float64  `json:"keyword_density"`
}

// scoreThreshold is the score below which a dimension needs repair.
const scoreThreshold = 7

var (
	faqHeadingRe   = regexp.MustCompile(`(?i)##\s*FAQ|##\s*자주\s*묻는\s*질문`)
	codeBlockRe    = regexp.MustCompile("(?s)```.*?```")
	markdownRe     = regexp.MustCompile(`[#*` + "`" + `\[\]\(\)]`)
	multiSpaceRe   = regexp.MustCompile(` +`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Fixer repairs generated content based on a validation report. Fixing
// never raises past its own boundary: any provider failure degrades to
// returning the original content with a note in the summary.
type Fixer struct {
	client llm.Client
	model  string
	logger *zap.Logger
}

// NewFixer constructs a fixer using the given model for repair calls.
func NewFixer(client llm.Client, model string, logger *zap.Logger) *Fixer {
	if model == "" {
		model = "gpt-4o"
	}
	return &Fixer{client: client, model: model, logger: logger}
}

// Fix repairs the content per the report's deficiencies.
func (f *Fixer) Fix(ctx context.Context, content string, report *ValidationReport, meta *FixMetadata) *FixResult {
	if meta == nil {
		meta = &FixMetadata{}
	}
	if meta.Language == "" {
		meta.Language = "ko"
	}
	if meta.Style == "" {
		meta.Style = "informational"
	}

	fixNeeds := extractFixNeeds(report)
	f.logger.Info("fix analysis",
		zap.Int("content_length", len(content)),
		zap.Strings("fix_needs", fixNeeds))

	// Already good content skips the provider call entirely.
	if len(fixNeeds) == 0 && report.GrammarScore >= 8 {
		f.logger.Info("content quality already good, skipping fix")
		return &FixResult{
			FixedContent:   content,
			FixSummary:     []string{"콘텐츠 품질이 우수하여 수정 불필요"},
			AddedFAQ:       report.HasFAQ,
			KeywordDensity: KeywordDensity(content, meta.FocusKeyphrase),
		}
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		reportJSON = []byte("{}")
	}
	userPrompt := fmt.Sprintf(fixerUserPromptFormat,
		string(reportJSON),
		strings.Join(fixNeeds, ", "),
		content,
		meta.FocusKeyphrase,
		meta.Language,
		meta.Style,
	)

	temp := 0.4
	resp, err := f.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fixerSystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		Model:       f.model,
		MaxTokens:   3000,
		Temperature: &temp,
	})
	if err != nil {
		f.logger.Error("fix call failed, returning original content", zap.Error(err))
		return &FixResult{
			FixedContent:   content,
			FixSummary:     []string{"교정 실패: " + err.Error()},
			AddedFAQ:       false,
			KeywordDensity: KeywordDensity(content, meta.FocusKeyphrase),
		}
	}

	fixed := postProcess(resp.Content)

	addedFAQ := !report.HasFAQ && faqHeadingRe.MatchString(fixed)
	density := KeywordDensity(fixed, meta.FocusKeyphrase)

	summary := make([]string, 0, 6)
	if addedFAQ {
		summary = append(summary, "FAQ 섹션 자동 추가")
	}
	if contains(fixNeeds, "grammar_improvement") {
		summary = append(summary, "문법 및 가독성 개선")
	}
	if contains(fixNeeds, "humanize_content") {
		summary = append(summary, "AI 탐지율 감소 (인간 문체 적용)")
	}
	if contains(fixNeeds, "seo_optimization") {
		summary = append(summary, "SEO 최적화 적용")
	}
	if meta.FocusKeyphrase != "" {
		summary = append(summary, fmt.Sprintf("키워드 밀도 조정: %v%%", density))
		if density < 1.5 || density > 2.5 {
			summary = append(summary, fmt.Sprintf("[주의] 키워드 밀도 범위 초과 (%v%%) - 수동 조정 권장", density))
		}
	}
	if len(summary) == 0 {
		summary = append(summary, "콘텐츠 전반적 품질 개선")
	}

	f.logger.Info("fix completed",
		zap.Int("fixed_length", len(fixed)),
		zap.Float64("keyword_density", density),
		zap.Bool("added_faq", addedFAQ))

	return &FixResult{
		FixedContent:   fixed,
		FixSummary:     summary,
		AddedFAQ:       addedFAQ,
		KeywordDensity: density,
	}
}

// extractFixNeeds derives the repair categories from issue types plus the
// legacy score and FAQ heuristics.
func extractFixNeeds(report *ValidationReport) []string {
	needs := make([]string, 0, len(report.Issues)+4)
	for _, issue := range report.Issues {
		if issue.Type != "" {
			needs = append(needs, issue.Type)
		}
	}

	if !report.HasFAQ && !contains(needs, "faq_missing") {
		needs = append(needs, "faq_missing")
	}

	grammar, human, seo := report.GrammarScore, report.HumanScore, report.SEOScore
	if report.Scores != nil {
		grammar = report.Scores["grammar"]
		human = report.Scores["human"]
		seo = report.Scores["seo"]
	}

	if grammar < scoreThreshold && !contains(needs, "grammar_improvement") {
		needs = append(needs, "grammar_improvement")
	}
	if human < scoreThreshold && !contains(needs, "humanize_content") {
		needs = append(needs, "humanize_content")
	}
	if seo < scoreThreshold && !contains(needs, "seo_optimization") {
		needs = append(needs, "seo_optimization")
	}

	return needs
}

// KeywordDensity returns the percentage of total words (code blocks and
// markdown punctuation stripped) that are occurrences of the keyphrase,
// rounded to two decimals.
func KeywordDensity(content, keyphrase string) float64 {
	if keyphrase == "" || content == "" {
		return 0.0
	}

	clean := codeBlockRe.ReplaceAllString(content, "")
	clean = markdownRe.ReplaceAllString(clean, "")

	totalWords := len(strings.Fields(clean))
	if totalWords == 0 {
		return 0.0
	}

	count := strings.Count(strings.ToLower(clean), strings.ToLower(keyphrase))
	density := float64(count) / float64(totalWords) * 100

	return math.Round(density*100) / 100
}

// postProcess normalizes the rewritten text: collapse repeated spaces and
// blank lines, drop stray single backticks, strip trailing whitespace.
func postProcess(content string) string {
	content = multiSpaceRe.ReplaceAllString(content, " ")
	content = multiNewlineRe.ReplaceAllString(content, "\n\n")
	content = stripLoneBackticks(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripLoneBackticks removes backticks not adjacent to another backtick,
// leaving fences and inline-code pairs intact.
func stripLoneBackticks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			prev := i > 0 && s[i-1] == '`'
			next := i+1 < len(s) && s[i+1] == '`'
			if !prev && !next {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
