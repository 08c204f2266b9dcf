package crawl

import (
	"bytes"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestLinkGraph(t *testing.T) {
	lg := NewLinkGraph()
	assert.NilError(t, lg.AddPage("http://a", []string{"http://b", "http://c", "http://a"}))
	assert.NilError(t, lg.AddPage("http://b", []string{"http://c", "http://a"}))
	// Serving the same page twice does not duplicate edges
	assert.NilError(t, lg.AddPage("http://a", []string{"http://b"}))

	vertices, edges := lg.Counts()
	assert.Equal(t, vertices, 3)
	assert.Equal(t, edges, 4)

	var out bytes.Buffer
	assert.NilError(t, lg.WriteDOT(&out))
	dot := out.String()
	assert.Assert(t, strings.Contains(dot, "digraph"), dot)
	assert.Assert(t, strings.Contains(dot, "->"), dot)
	assert.Assert(t, strings.Contains(dot, `"http://c"`), dot)
}
