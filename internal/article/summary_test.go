package article

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoFormat(t *testing.T) {
	assert.Equal(t, "**Study Context**\n- Mice flew.\n- They returned.", AutoFormat("Mice flew. They returned.", KeyBackground))

	got := AutoFormat("One. Two. Three. Four. Five. Six. Seven", KeyEthicalConsiderations)
	assert.Equal(t, "**Overview**\n- One.\n- Two.\n- Three.\n- Four.\n- Five.", got)

	assert.Equal(t, "...", AutoFormat("...", KeyConclusion))
	assert.Equal(t, "", AutoFormat("", KeyConclusion))
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "**Main Findings**\n- a\n- 2", FormatList([]any{"a", float64(2)}, KeyKeyFindings))
	assert.Equal(t, "**Summary**\n- x", FormatList([]any{"x"}, KeyAdditionalNotes))
	assert.Equal(t, "", FormatList(nil, KeyBackground))
}

func TestCoerce(t *testing.T) {
	s := Coerce(map[string]any{
		"Background":            "Astronauts lose bone mass. Exercise helps slow it.",
		"KeyFindings":           []any{"Loss of 1% per month", "Recovery is partial"},
		"Methodology":           "**Design**\n- Cohort of twelve crew members over a year",
		"EthicalConsiderations": false,
		"Implications":          float64(42),
		"Conclusion":            map[string]any{"note": "this value is a nested object"},
	})

	assert.Equal(t, "**Study Context**\n- Astronauts lose bone mass.\n- Exercise helps slow it.", s.Background)
	assert.Equal(t, "**Main Findings**\n- Loss of 1% per month\n- Recovery is partial", s.KeyFindings)
	assert.Equal(t, "**Design**\n- Cohort of twelve crew members over a year", s.Methodology)
	assert.Equal(t, "", s.EthicalConsiderations)
	assert.Equal(t, "42", s.Implications)
	assert.Equal(t, "", s.AdditionalNotes)
	assert.Equal(t, `**Summary**`+"\n"+`- {"note":"this value is a nested object"}.`, s.Conclusion)

	for _, key := range Keys {
		assert.NotPanics(t, func() { _ = s.Get(key) })
	}
	assert.Equal(t, "", s.Get("Unknown"))
}

func TestFallback(t *testing.T) {
	t.Run("with abstract", func(t *testing.T) {
		s := Fallback("ABSTRACT: Abstract text here. Second. FULL TEXT: Body one. Body two.")
		assert.Equal(t, "**Study Context**\n- Abstract text here.\n- Second.", s.Background)
		assert.Equal(t, "**Main Results**\n- Body one.\n- Body two.", s.KeyFindings)
		assert.Equal(t, fallbackMethodology, s.Methodology)
		assert.Equal(t, fallbackAdditionalNotes, s.AdditionalNotes)
		assert.Empty(t, s.EthicalConsiderations)
		assert.Empty(t, s.Implications)
		assert.Empty(t, s.Conclusion)
	})

	t.Run("body only", func(t *testing.T) {
		s := Fallback(strings.Repeat("a", 1000))
		assert.Equal(t, "**Study Context**\n- "+strings.Repeat("a", 800)+".", s.Background)
		assert.Equal(t, "**Main Results**\n- "+strings.Repeat("a", 200)+".", s.KeyFindings)
	})

	t.Run("short body", func(t *testing.T) {
		s := Fallback("Tiny.")
		assert.Equal(t, "**Study Context**\n- Tiny.", s.Background)
		assert.Empty(t, s.KeyFindings)
	})
}

func TestParseModelOutput(t *testing.T) {
	t.Run("fenced with chatter", func(t *testing.T) {
		raw := "```json\n{\"Background\": \"**Context**\\n- {braces} inside\", \"Conclusion\": \"ok\"}\n```"
		s, err := ParseModelOutput(raw)
		require.NoError(t, err)
		assert.Equal(t, "**Context**\n- {braces} inside", s.Background)
		assert.Equal(t, "ok", s.Conclusion)
		assert.Equal(t, "", s.KeyFindings)
	})

	t.Run("trailing text after object", func(t *testing.T) {
		s, err := ParseModelOutput(`Here you go: {"Conclusion": "done"} Hope this helps {smile}`)
		require.NoError(t, err)
		assert.Equal(t, "done", s.Conclusion)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := ParseModelOutput("I cannot summarize this article.")
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseModelOutput(`{"Background": "unterminated}`)
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})
}

func TestJSONSpan(t *testing.T) {
	span, ok := jsonSpan(`x {"a": {"b": "}"}} y`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}}`, span)

	_, ok = jsonSpan("no braces")
	assert.False(t, ok)

	_, ok = jsonSpan("} {")
	assert.False(t, ok)
}
