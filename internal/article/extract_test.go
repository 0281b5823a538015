package article

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestExtractTitle(t *testing.T) {
	doc := parse(t, `<html><head><title>Page &amp;amp; Title</title></head><body><h1>  </h1></body></html>`)
	assert.Equal(t, "Page & Title", ExtractTitle(doc))

	doc = parse(t, `<html><body><h1>Bone <em>loss</em>
		in space</h1></body></html>`)
	assert.Equal(t, "Bone loss in space", ExtractTitle(doc))

	doc = parse(t, `<html><body><p>nothing</p></body></html>`)
	assert.Equal(t, TitlePlaceholder, ExtractTitle(doc))
}

func TestExtractAuthors(t *testing.T) {
	t.Run("citation meta", func(t *testing.T) {
		doc := parse(t, `<html><head>
			<meta name="citation_author" content=" Jane Doe ">
			<meta name="citation_author" content="">
			<meta name="citation_author" content="John Roe">
		</head><body><span class="author">Ignored</span></body></html>`)
		assert.Equal(t, []string{"Jane Doe", "John Roe"}, ExtractAuthors(doc))
	})

	t.Run("author classes", func(t *testing.T) {
		long := strings.Repeat("x", 120)
		doc := parse(t, `<html><body>
			<span class="author-name">Jane   Doe</span>
			<div class="AUTHORS">`+long+`</div>
			<span class="byline-Author">Ann Lee</span>
		</body></html>`)
		assert.Equal(t, []string{"Jane Doe", "Ann Lee"}, ExtractAuthors(doc))
	})

	t.Run("capped", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 20; i++ {
			sb.WriteString(`<meta name="citation_author" content="A">`)
		}
		doc := parse(t, `<html><head>`+sb.String()+`</head></html>`)
		assert.Len(t, ExtractAuthors(doc), maxAuthors)
	})

	t.Run("none", func(t *testing.T) {
		authors := ExtractAuthors(parse(t, `<html><body></body></html>`))
		assert.NotNil(t, authors)
		assert.Empty(t, authors)
	})
}

func TestExtractAbstract(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("Microgravity alters bone density. ", 5))

	t.Run("first long candidate wins", func(t *testing.T) {
		doc := parse(t, `<html><body>
			<div class="abstract">Too short</div>
			<section id="Abstract-1">`+long+`</section>
		</body></html>`)
		assert.Equal(t, long, ExtractAbstract(doc))
	})

	t.Run("meta description before short candidate", func(t *testing.T) {
		doc := parse(t, `<html><head>
			<meta name="description" content="">
			<meta property="og:description" content="Open graph summary">
		</head><body><p class="abstract">Short</p></body></html>`)
		assert.Equal(t, "Open graph summary", ExtractAbstract(doc))
	})

	t.Run("short candidate as last resort", func(t *testing.T) {
		doc := parse(t, `<html><body><div id="abstractBox">Short abstract</div></body></html>`)
		assert.Equal(t, "Short abstract", ExtractAbstract(doc))
	})

	t.Run("nothing", func(t *testing.T) {
		assert.Equal(t, "", ExtractAbstract(parse(t, `<html><body><p>x</p></body></html>`)))
	})
}

func TestExtractBody(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 120))

	doc := parse(t, `<html><body>
		<article><nav>Menu</nav><p>`+long+`</p><script>var x = 1;</script><footer>Foot</footer></article>
	</body></html>`)
	assert.Equal(t, long, ExtractBody(doc))

	doc = parse(t, `<html><body>
		<article>tiny</article>
		<div class="Article-Body">`+long+`</div>
	</body></html>`)
	assert.Equal(t, long, ExtractBody(doc))

	doc = parse(t, `<html><body><header>Site</header><p>Just a little text.</p><aside>ad</aside></body></html>`)
	assert.Equal(t, "Just a little text.", ExtractBody(doc))
}

func TestExtractPDFURL(t *testing.T) {
	base, err := url.Parse("https://example.org/articles/123")
	require.NoError(t, err)

	doc := parse(t, `<html><head><meta name="citation_pdf_url" content="https://cdn.example.org/123.pdf"></head>
		<body><a href="/other.pdf">x</a></body></html>`)
	assert.Equal(t, "https://cdn.example.org/123.pdf", ExtractPDFURL(doc, base))

	doc = parse(t, `<html><body>
		<a href="javascript:void(0)">PDF</a>
		<a href="/about">About</a>
		<a href="files/paper.PDF?dl=1">Download</a>
	</body></html>`)
	assert.Equal(t, "https://example.org/articles/files/paper.PDF?dl=1", ExtractPDFURL(doc, base))

	doc = parse(t, `<html><body><a href="/about">About</a></body></html>`)
	assert.Equal(t, "", ExtractPDFURL(doc, base))
}

func TestFullText(t *testing.T) {
	c := Content{Abstract: "Abs", Body: "Body"}
	assert.Equal(t, "ABSTRACT:\nAbs\n\n\nFULL TEXT:\nBody", c.FullText())

	c = Content{Body: strings.Repeat("b", maxBodyChars+10)}
	assert.Equal(t, "\nFULL TEXT:\n"+strings.Repeat("b", maxBodyChars), c.FullText())

	assert.Equal(t, "", Content{}.FullText())
}

func TestFirstMatchConfidence(t *testing.T) {
	doc := parse(t, `<html><body><p class="abstract">abc</p></body></html>`)

	m, ok := FirstMatch(doc, AbstractStrategies, 0)
	require.True(t, ok)
	assert.Equal(t, "abstract-p-class", m.Strategy)
	assert.Equal(t, 3, m.Confidence())

	_, ok = FirstMatch(doc, AbstractStrategies, 3)
	assert.False(t, ok)
}
