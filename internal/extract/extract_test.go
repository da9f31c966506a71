package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/textvec/internal/extract"
)

func TestHTML(t *testing.T) {
	doc := `<html><head><title>Test Page</title><style>body{color:red}</style></head>
<body><h1>Hello</h1><p>cat <b>dog</b></p><script>var x = "hidden";</script><a href='/link1'>Link 1</a></body></html>`

	page, err := extract.HTML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Test Page", page.Title)
	assert.Equal(t, "Hello cat dog Link 1", page.Text)
	assert.NotContains(t, page.Text, "hidden")
	assert.NotContains(t, page.Text, "color")
}

func TestTexts(t *testing.T) {
	docs := []string{"<p>cat dog</p>", "<div>dog<br>bird</div>"}

	out, err := extract.Texts(docs, extract.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat dog", "dog bird"}, out)

	out, err = extract.Texts(docs, extract.FormatText)
	require.NoError(t, err)
	assert.Equal(t, docs, out)
}

func TestParseFormat(t *testing.T) {
	f, err := extract.ParseFormat("")
	assert.NoError(t, err)
	assert.Equal(t, extract.FormatText, f)

	f, err = extract.ParseFormat("HTML")
	assert.NoError(t, err)
	assert.Equal(t, extract.FormatHTML, f)

	_, err = extract.ParseFormat("pdf")
	assert.Error(t, err)
}
