package article

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one named way of pulling a piece of text out of a page.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) (Match, bool)
}

// Match is a strategy's candidate text.
type Match struct {
	Strategy string
	Text     string
}

// Confidence is the candidate's length in characters.
func (m Match) Confidence() int {
	return utf8.RuneCountInString(m.Text)
}

// FirstMatch runs strategies in order and returns the first match whose
// confidence exceeds minConfidence.
func FirstMatch(doc *goquery.Document, strategies []Strategy, minConfidence int) (Match, bool) {
	for _, s := range strategies {
		m, ok := s.Extract(doc)
		if ok && m.Confidence() > minConfidence {
			return m, true
		}
	}
	return Match{}, false
}

// Candidates returns every match the strategies produce, in strategy order.
func Candidates(doc *goquery.Document, strategies []Strategy) []Match {
	var out []Match
	for _, s := range strategies {
		if m, ok := s.Extract(doc); ok {
			out = append(out, m)
		}
	}
	return out
}

// firstElement builds a strategy that takes the first element matched by selector
// and accepted by keep, and reads it with read.
func firstElement(name, selector string, keep func(*goquery.Selection) bool, read func(*goquery.Selection) string) Strategy {
	return Strategy{
		Name: name,
		Extract: func(doc *goquery.Document) (Match, bool) {
			var found *goquery.Selection
			doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if keep == nil || keep(s) {
					found = s
					return false
				}
				return true
			})
			if found == nil {
				return Match{}, false
			}
			return Match{Strategy: name, Text: read(found)}, true
		},
	}
}

// metaContent builds a strategy reading the content attribute of the first matching meta tag.
func metaContent(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Extract: func(doc *goquery.Document) (Match, bool) {
			var text string
			doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text = cleanAttr(s, "content")
				return text == ""
			})
			if text == "" {
				return Match{}, false
			}
			return Match{Strategy: name, Text: text}, true
		},
	}
}
