package article

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

const (
	TitlePlaceholder = "Article Title Unavailable"

	minAbstractChars = 100
	minBodyChars     = 500
	maxBodyChars     = 8000
	maxAuthorChars   = 100
	authorCandidates = 10
	maxAuthors       = 15
)

var (
	abstractIDPattern = regexp.MustCompile(`(?i)abstract`)
	bodyClassPattern  = regexp.MustCompile(`(?i)article-body|content-body|article-text`)
	bodyIDPattern     = regexp.MustCompile(`(?i)article-body|content`)
	authorPattern     = regexp.MustCompile(`(?i)author`)
)

// Content is everything pulled out of one article page.
type Content struct {
	Title    string
	Authors  []string
	Abstract string
	Body     string
	PDFURL   string
}

// FullText is the labelled abstract and capped body handed to the summarizer.
func (c Content) FullText() string {
	var parts []string
	if c.Abstract != "" {
		parts = append(parts, "ABSTRACT:\n"+c.Abstract)
	}
	if c.Body != "" {
		parts = append(parts, "\nFULL TEXT:\n"+utils.Truncate(c.Body, maxBodyChars))
	}
	return strings.Join(parts, "\n\n")
}

func attrMatches(attr string, pattern *regexp.Regexp) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		return ok && pattern.MatchString(v)
	}
}

func cleanAttr(s *goquery.Selection, attr string) string {
	v, _ := s.Attr(attr)
	return utils.CollapseWhitespace(v)
}

var TitleStrategies = []Strategy{
	firstElement("h1", "h1", nonEmpty, nodeText),
	firstElement("title", "title", nonEmpty, nodeText),
}

var AbstractStrategies = []Strategy{
	firstElement("abstract-div-class", "div.abstract, div.Abstract, div.article-abstract", nil, nodeText),
	firstElement("abstract-section-id", "section[id]", attrMatches("id", abstractIDPattern), nodeText),
	firstElement("abstract-p-class", "p.abstract", nil, nodeText),
	firstElement("abstract-div-id", "div[id]", attrMatches("id", abstractIDPattern), nodeText),
}

var AbstractMetaStrategies = []Strategy{
	metaContent("meta-description", `meta[name="description"]`),
	metaContent("og-description", `meta[property="og:description"]`),
}

var BodyStrategies = []Strategy{
	firstElement("article", "article", nil, strippedText),
	firstElement("main", "main", nil, strippedText),
	firstElement("body-div-class", "div[class]", attrMatches("class", bodyClassPattern), strippedText),
	firstElement("body-div-id", "div[id]", attrMatches("id", bodyIDPattern), strippedText),
}

var wholeBody = firstElement("body", "body", nil, strippedText)

func nonEmpty(s *goquery.Selection) bool {
	return nodeText(s) != ""
}

// Extract runs every extractor over a parsed page. pageURL resolves relative links.
func Extract(doc *goquery.Document, pageURL *url.URL) Content {
	return Content{
		Title:    ExtractTitle(doc),
		Authors:  ExtractAuthors(doc),
		Abstract: ExtractAbstract(doc),
		Body:     ExtractBody(doc),
		PDFURL:   ExtractPDFURL(doc, pageURL),
	}
}

func ExtractTitle(doc *goquery.Document) string {
	if m, ok := FirstMatch(doc, TitleStrategies, 0); ok {
		return html.UnescapeString(m.Text)
	}
	return TitlePlaceholder
}

// ExtractAuthors prefers citation_author meta tags, then elements whose class mentions "author".
func ExtractAuthors(doc *goquery.Document) []string {
	var authors []string
	doc.Find(`meta[name="citation_author"]`).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			authors = append(authors, v)
		}
	})

	if len(authors) == 0 {
		candidates := doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return attrMatches("class", authorPattern)(s)
		})
		candidates.EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= authorCandidates {
				return false
			}
			text := nodeText(s)
			if text != "" && len([]rune(text)) < maxAuthorChars {
				authors = append(authors, text)
			}
			return true
		})
	}

	if len(authors) > maxAuthors {
		authors = authors[:maxAuthors]
	}
	if authors == nil {
		authors = []string{}
	}
	return authors
}

// ExtractAbstract takes the first long enough candidate, then the page description,
// then the last short candidate seen.
func ExtractAbstract(doc *goquery.Document) string {
	if m, ok := FirstMatch(doc, AbstractStrategies, minAbstractChars); ok {
		return m.Text
	}
	if m, ok := FirstMatch(doc, AbstractMetaStrategies, 0); ok {
		return m.Text
	}
	var short string
	for _, m := range Candidates(doc, AbstractStrategies) {
		if m.Text != "" {
			short = m.Text
		}
	}
	return short
}

// ExtractBody takes the first content container with enough text, else the whole body.
func ExtractBody(doc *goquery.Document) string {
	if m, ok := FirstMatch(doc, BodyStrategies, minBodyChars); ok {
		return m.Text
	}
	if m, ok := wholeBody.Extract(doc); ok {
		return m.Text
	}
	return ""
}

// ExtractPDFURL prefers citation_pdf_url, then the first link to a .pdf or labelled "pdf".
func ExtractPDFURL(doc *goquery.Document, pageURL *url.URL) string {
	if v := cleanAttr(doc.Find(`meta[name="citation_pdf_url"]`).First(), "content"); v != "" {
		if resolved := resolve(pageURL, v); resolved != "" {
			return resolved
		}
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}
		if !isPDFHref(href) && !strings.Contains(strings.ToLower(nodeText(s)), "pdf") {
			return true
		}
		found = resolve(pageURL, href)
		return found == ""
	})
	return found
}

func isPDFHref(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(href), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// resolve returns href as an absolute http(s) URL, or "" when it is not one.
func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}
