package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidDirectives(t *testing.T) {
	cases := []struct {
		line string
		want Directive
	}{
		{"begin(T1)", Directive{Kind: Begin, Tx: "T1"}},
		{"end(T1)", Directive{Kind: End, Tx: "T1"}},
		{"R(T1, x2)", Directive{Kind: Read, Tx: "T1", Var: 2}},
		{"W(T1,x2,-7)", Directive{Kind: Write, Tx: "T1", Var: 2, Value: -7}},
		{"fail(3)", Directive{Kind: Fail, Site: 3}},
		{"recover(3)", Directive{Kind: Recover, Site: 3}},
		{"dump()", Directive{Kind: DumpAll}},
		{"dump(x5)", Directive{Kind: DumpVariable, Var: 5}},
		{"dump(5)", Directive{Kind: DumpSite, Site: 5}},
		{"reset()", Directive{Kind: Reset}},
	}
	for _, c := range cases {
		got, ok := Parse(c.line)
		require.True(t, ok, c.line)
		assert.Equal(t, c.want, got, c.line)
	}
}

func TestParseUnparseableLine(t *testing.T) {
	_, ok := Parse("bogus garbage")
	assert.False(t, ok)
}

func TestParseTestMarker(t *testing.T) {
	got, ok := Parse("// Test 7")
	require.True(t, ok)
	assert.True(t, got.IsMarker)
	assert.Equal(t, "7", got.TestName)
}

func TestStripCommentPreservesMarker(t *testing.T) {
	assert.Equal(t, "// Test 7", StripComment("// Test 7"))
}

func TestStripCommentTrimsTrailingComment(t *testing.T) {
	assert.Equal(t, "begin(T1) ", StripComment("begin(T1) // start"))
}

func TestParseWarningFormat(t *testing.T) {
	assert.Equal(t, "Warning: Could not parse line: xyz", ParseWarning("  xyz  "))
}
