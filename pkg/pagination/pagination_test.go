package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDefaults(t *testing.T) {
	p := Parse(Options{})
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, p)

	p = Parse(Options{Page: 3, Limit: 500})
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 200, p.Offset)

	off := false
	assert.True(t, Parse(Options{Pagination: &off}).Disabled)
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Parse(Options{Page: 2, Limit: 10}), 25, 10)
	assert.Equal(t, 3, m.PageCount)
	assert.Equal(t, 11, m.SlNo)
	assert.True(t, m.HasPrevPage)
	assert.True(t, m.HasNextPage)
	if assert.NotNil(t, m.Prev) && assert.NotNil(t, m.Next) {
		assert.Equal(t, 1, *m.Prev)
		assert.Equal(t, 3, *m.Next)
	}

	empty := NewMeta(Parse(Options{}), 0, 0)
	assert.Equal(t, 1, empty.PageCount)
	assert.False(t, empty.HasNextPage)
	assert.Nil(t, empty.Next)

	all := NewMeta(Params{Disabled: true}, 7, 7)
	assert.Equal(t, Meta{ItemCount: 7, PerPage: 7, PageCount: 1, CurrentPage: 1, SlNo: 1}, all)
}
