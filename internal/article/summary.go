package article

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	KeyBackground            = "Background"
	KeyKeyFindings           = "KeyFindings"
	KeyMethodology           = "Methodology"
	KeyEthicalConsiderations = "EthicalConsiderations"
	KeyImplications          = "Implications"
	KeyAdditionalNotes       = "AdditionalNotes"
	KeyConclusion            = "Conclusion"

	fallbackMethodology     = "**Note**\n- Full analysis unavailable. Please check the original article."
	fallbackAdditionalNotes = "**Important**\n- This is an automated summary. Some details may be incomplete."

	fallbackBackgroundChars = 800
	fallbackFindingsChars   = 600
	maxBullets              = 5
	minAutoFormatChars      = 20
)

// Keys lists the summary sections in output order.
var Keys = []string{
	KeyBackground,
	KeyKeyFindings,
	KeyMethodology,
	KeyEthicalConsiderations,
	KeyImplications,
	KeyAdditionalNotes,
	KeyConclusion,
}

var (
	ErrNoJSON      = errors.New("no json object in model output")
	ErrInvalidJSON = errors.New("model output is not valid json")
)

var (
	autoFormatHeadings = map[string]string{
		KeyBackground:   "Study Context",
		KeyKeyFindings:  "Main Results",
		KeyMethodology:  "Study Design",
		KeyImplications: "Key Implications",
		KeyConclusion:   "Summary",
	}
	listHeadings = map[string]string{
		KeyBackground:   "Key Points",
		KeyKeyFindings:  "Main Findings",
		KeyMethodology:  "Methods",
		KeyImplications: "Implications",
	}

	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// Summary is the seven-section structured summary. Each value holds zero or more
// "**Heading**\n- bullet" blocks.
type Summary struct {
	Background            string `json:"Background"`
	KeyFindings           string `json:"KeyFindings"`
	Methodology           string `json:"Methodology"`
	EthicalConsiderations string `json:"EthicalConsiderations"`
	Implications          string `json:"Implications"`
	AdditionalNotes       string `json:"AdditionalNotes"`
	Conclusion            string `json:"Conclusion"`
}

func EmptySummary() Summary {
	return Summary{}
}

func (s *Summary) field(key string) *string {
	switch key {
	case KeyBackground:
		return &s.Background
	case KeyKeyFindings:
		return &s.KeyFindings
	case KeyMethodology:
		return &s.Methodology
	case KeyEthicalConsiderations:
		return &s.EthicalConsiderations
	case KeyImplications:
		return &s.Implications
	case KeyAdditionalNotes:
		return &s.AdditionalNotes
	case KeyConclusion:
		return &s.Conclusion
	}
	return nil
}

// Get returns the section named key, or "" for unknown keys.
func (s Summary) Get(key string) string {
	if f := s.field(key); f != nil {
		return *f
	}
	return ""
}

// Coerce builds a Summary from a decoded model object. Missing keys become empty,
// lists become bulleted blocks, and long unstructured strings are auto-formatted.
func Coerce(raw map[string]any) Summary {
	var out Summary
	for _, key := range Keys {
		val := coerceValue(raw[key], key)
		if val != "" && !strings.Contains(val, "**") && utf8.RuneCountInString(val) > minAutoFormatChars {
			val = AutoFormat(val, key)
		}
		*out.field(key) = val
	}
	return out
}

func coerceValue(v any, key string) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		return FormatList(t, key)
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
	}
	return scalarString(v)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// AutoFormat turns plain prose into a heading plus up to five sentence bullets.
func AutoFormat(text, key string) string {
	if text == "" {
		return ""
	}

	var sentences []string
	for _, part := range strings.Split(text, ".") {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s+".")
		}
	}
	if len(sentences) == 0 {
		return text
	}
	if len(sentences) > maxBullets {
		sentences = sentences[:maxBullets]
	}

	heading, ok := autoFormatHeadings[key]
	if !ok {
		heading = "Overview"
	}
	return bulletBlock(heading, sentences)
}

// FormatList renders list items as one bulleted block.
func FormatList(items []any, key string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, scalarString(item))
	}
	heading, ok := listHeadings[key]
	if !ok {
		heading = "Summary"
	}
	return bulletBlock(heading, lines)
}

func bulletBlock(heading string, lines []string) string {
	var sb strings.Builder
	sb.WriteString("**" + heading + "**\n")
	for _, l := range lines {
		sb.WriteString("- " + l + "\n")
	}
	return strings.TrimSpace(sb.String())
}

// Fallback synthesizes a summary from the article text itself.
func Fallback(text string) Summary {
	abstract, body := "", text
	if before, after, found := strings.Cut(text, "FULL TEXT:"); found {
		abstract = strings.TrimSpace(strings.ReplaceAll(before, "ABSTRACT:", ""))
		body = strings.TrimSpace(after)
	}

	background, offset := abstract, 0
	if background == "" {
		background = runeSlice(body, 0, fallbackBackgroundChars)
		offset = fallbackBackgroundChars
	}

	var findings string
	if preview := runeSlice(body, offset, fallbackFindingsChars); preview != "" {
		findings = AutoFormat(preview, KeyKeyFindings)
	}

	return Summary{
		Background:      AutoFormat(background, KeyBackground),
		KeyFindings:     findings,
		Methodology:     fallbackMethodology,
		AdditionalNotes: fallbackAdditionalNotes,
	}
}

func runeSlice(s string, from, n int) string {
	r := []rune(s)
	if from >= len(r) {
		return ""
	}
	end := from + n
	if end > len(r) {
		end = len(r)
	}
	return string(r[from:end])
}

// ParseModelOutput decodes a model reply into a Summary. Code fences and any text
// around the first balanced JSON object are ignored.
func ParseModelOutput(raw string) (Summary, error) {
	raw = stripFences(strings.TrimSpace(raw))

	span, ok := jsonSpan(raw)
	if !ok {
		return Summary{}, ErrNoJSON
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return Coerce(obj), nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	return fenceClose.ReplaceAllString(s, "")
}

// jsonSpan returns the first balanced {...} in s, skipping braces inside strings.
// An unbalanced object yields everything from the first '{' to the last '}'.
func jsonSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
