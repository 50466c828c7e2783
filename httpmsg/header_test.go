package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderSetGetCaseInsensitive(t *testing.T) {
	h := NewHeader()
	h.Set("Content-Type", "text/xml")
	assert.Equal(t, "text/xml", h.Get("content-type"))
	assert.True(t, h.Has("CONTENT-TYPE"))
}

func TestHeaderSetOverwritesPreservingOrder(t *testing.T) {
	h := NewHeader()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Set("a", "3")

	var names []string
	h.Range(func(name, value string) { names = append(names, name) })
	assert.Equal(t, []string{"A", "B"}, names)
	assert.Equal(t, "3", h.Get("a"))
}

func TestHeaderDel(t *testing.T) {
	h := NewHeader()
	h.Set("X", "1")
	h.Del("x")
	assert.False(t, h.Has("X"))
	assert.Equal(t, "", h.Get("X"))
}

func TestHeaderContainsToken(t *testing.T) {
	h := NewHeader()
	h.Set("Transfer-Encoding", "chunked")
	assert.True(t, h.ContainsToken("transfer-encoding", "Chunked"))
	assert.False(t, h.ContainsToken("Transfer-Encoding", "gzip"))

	h.Set("Connection", "keep-alive, Upgrade")
	assert.True(t, h.ContainsToken("Connection", "upgrade"))
}
