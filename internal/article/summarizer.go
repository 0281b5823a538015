package article

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/llm"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

const maxSummaryInputChars = 10000

const summaryPromptHead = `You are an expert scientific article summarizer. Analyze the following scientific article and create a structured JSON summary.

CRITICAL FORMATTING RULES:
1. Return ONLY valid JSON - no markdown, no explanations, just pure JSON
2. Each section must use this exact format with subsections:
   - Start with descriptive subheading: **SubheadingName**
   - Follow with bullet points: - Point text here
   - Separate subsections with blank line

3. Required JSON structure (all keys must exist):
{
  "Background": "**Context**\n- First point\n- Second point\n\n**Objectives**\n- Point here",
  "KeyFindings": "**Main Results**\n- Finding 1\n- Finding 2",
  "Methodology": "**Study Design**\n- Design detail\n\n**Procedures**\n- Procedure detail",
  "EthicalConsiderations": "**Ethical Aspects**\n- Point if available, empty string if none",
  "Implications": "**Clinical Implications**\n- Implication point",
  "AdditionalNotes": "**Limitations**\n- Point if any, empty string if none",
  "Conclusion": "**Key Takeaways**\n- Conclusion point"
}

CONTENT GUIDELINES:
- Background: Context, previous research, study objectives
- KeyFindings: Main results and discoveries (be specific with numbers/data if available)
- Methodology: Study design, sample size, procedures, analysis methods
- EthicalConsiderations: IRB approval, consent, animal welfare (leave empty if not mentioned)
- Implications: Clinical/practical implications, significance
- AdditionalNotes: Limitations, future research, funding (leave empty if not mentioned)
- Conclusion: Main takeaways and final remarks

ARTICLE TEXT:
`

const summaryPromptTail = `

Return ONLY the JSON object, nothing else:`

// Summarizer turns article text into a structured summary. The bool reports
// whether the model produced it, as opposed to the local fallback.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (Summary, bool)
}

type LLMSummarizer struct {
	completer llm.Completer
	log       *zap.Logger
}

func NewLLMSummarizer(completer llm.Completer) *LLMSummarizer {
	return &LLMSummarizer{completer: completer, log: logger.GetLogger()}
}

// SummaryPrompt embeds text in the fixed summarization instructions.
func SummaryPrompt(text string) string {
	return summaryPromptHead + text + summaryPromptTail
}

// PrepareSummaryInput collapses whitespace and caps the text at the model's input size.
func PrepareSummaryInput(text string) string {
	text = utils.CollapseWhitespace(text)
	if utf8.RuneCountInString(text) > maxSummaryInputChars {
		text = utils.Truncate(text, maxSummaryInputChars) + "..."
	}
	return text
}

func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (Summary, bool) {
	text = PrepareSummaryInput(text)
	if text == "" {
		return EmptySummary(), false
	}

	s.log.Info("Requesting structured summary",
		zap.String("provider", s.completer.Name()),
		zap.Int("chars", utf8.RuneCountInString(text)),
	)

	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{UserPrompt: SummaryPrompt(text)})
	if err != nil {
		return s.fallback(text, failureReason(err), err), false
	}

	summary, err := ParseModelOutput(resp.Content)
	if err != nil {
		reason := "invalid_json"
		if errors.Is(err, ErrNoJSON) {
			reason = "no_json"
		}
		return s.fallback(text, reason, err), false
	}

	s.log.Info("Parsed structured summary", zap.Int("response_chars", len(resp.Content)))
	return summary, true
}

func (s *LLMSummarizer) fallback(text, reason string, err error) Summary {
	metrics.SummaryFallbacks.WithLabelValues(reason).Inc()
	s.log.Warn("Using fallback summary",
		zap.String("reason", reason),
		zap.Error(err),
	)
	return Fallback(text)
}

func failureReason(err error) string {
	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "error"
	}
}
