package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nisabo/internal/apperr"
)

func TestCompute_AppendLine(t *testing.T) {
	cs := Compute("# Welcome", "# Welcome\nExtra line")
	require.Len(t, cs, 1)
	assert.Equal(t, Change{Op: OpInsert, Index: 1, Text: "Extra line"}, cs[0])
}

func TestCompute_Identical(t *testing.T) {
	assert.Empty(t, Compute("a\nb\nc", "a\nb\nc"))
	assert.Empty(t, Compute("", ""))
}

func TestCompute_FromEmpty(t *testing.T) {
	cs := Compute("", "one\ntwo")
	assert.Equal(t, ChangeSet{
		{Op: OpInsert, Index: 0, Text: "one"},
		{Op: OpInsert, Index: 1, Text: "two"},
	}, cs)
}

func TestCompute_DeleteDoesNotAdvanceCursor(t *testing.T) {
	cs := Compute("a\nb\nc", "a\nc")
	assert.Equal(t, ChangeSet{{Op: OpDelete, Index: 1, Text: "b"}}, cs)
}

func TestCompute_ReplaceDeletesBeforeInserts(t *testing.T) {
	cs := Compute("a\nold\nc", "a\nnew\nc")
	assert.Equal(t, ChangeSet{
		{Op: OpDelete, Index: 1, Text: "old"},
		{Op: OpInsert, Index: 1, Text: "new"},
	}, cs)
}

func TestRevert_RoundTrip(t *testing.T) {
	cases := []struct {
		name          string
		before, after string
	}{
		{"append", "# Welcome", "# Welcome\nExtra line"},
		{"from empty", "", "hello\nworld"},
		{"to empty", "hello\nworld", ""},
		{"replace middle", "a\nb\nc\nd", "a\nx\ny\nd"},
		{"delete head", "a\nb\nc", "b\nc"},
		{"trailing newline", "a\n", "a\nb\n"},
		{"crlf kept", "a\r\nb", "a\r\nc"},
		{"shuffle", "1\n2\n3\n4\n5", "5\n1\n3\n2\n4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cs := Compute(tc.before, tc.after)
			assert.Equal(t, tc.before, Revert(tc.after, cs))
		})
	}
}

func TestRevert_IgnoresOutOfRange(t *testing.T) {
	cs := ChangeSet{{Op: OpInsert, Index: 10, Text: "x"}}
	assert.Equal(t, "a", Revert("a", cs))
}

func TestEncodeDecode(t *testing.T) {
	payload, err := Encode(Compute("# Welcome", "# Welcome\nExtra line"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op":"insert","index":1,"text":"Extra line"}]`, payload)

	cs, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "Extra line", cs[0].Text)
}

func TestEncode_NilIsEmptyArray(t *testing.T) {
	payload, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)
}

func TestDecode_Invalid(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"op":"insert"}`,
		`[{"op":"move","index":0,"text":"x"}]`,
		`[{"op":"delete","index":-1,"text":"x"}]`,
	} {
		_, err := Decode(payload)
		assert.ErrorIs(t, err, apperr.ErrSerialization, "Decode(%q)", payload)
	}
}
