package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	assert.Equal(t, empty, Sum(nil))
	assert.Equal(t, empty, OfContent(nil))
	s := ""
	assert.Equal(t, empty, OfContent(&s))
}

func TestMatches(t *testing.T) {
	sum := Sum([]byte("body"))
	cases := []struct {
		header string
		want   bool
	}{
		{"", true},
		{"*", true},
		{sum, true},
		{ETag(sum), true},
		{`W/` + ETag(sum), true},
		{`"other", ` + ETag(sum), true},
		{`"other"`, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Matches(tc.header, sum), "Matches(%q)", tc.header)
	}
}
