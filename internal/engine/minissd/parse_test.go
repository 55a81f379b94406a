package minissd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_WalksLinkedLists(t *testing.T) {
	doc, err := Parse(`/// skipped
import a::b;
data P { x: 2 of u8, y: list of q::r, };
enum E { A = 4, B };
service S {
	depends on L;
	fn f(a: u8) -> u8;
	handles g();
	event e(#[k(v = "w")] b: u8);
};`)
	require.NoError(t, err)
	defer doc.Free()

	n := doc.Nodes()
	require.NotNil(t, n)
	assert.Equal(t, NodeImport, n.Kind())
	assert.Equal(t, "a::b", n.Name())

	n = n.Next()
	assert.Equal(t, NodeData, n.Kind())
	x := n.Properties()
	assert.Equal(t, "x", x.Name())
	count, ok := x.Type().Count()
	assert.True(t, ok)
	assert.Equal(t, 2, count)
	y := x.Next()
	assert.True(t, y.Type().IsList())
	_, ok = y.Type().Count()
	assert.False(t, ok)
	assert.Equal(t, "q::r", y.Type().Name())
	assert.Nil(t, y.Next())

	n = n.Next()
	assert.Equal(t, NodeEnum, n.Kind())
	v, ok := n.Variants().Value()
	assert.True(t, ok)
	assert.Equal(t, int64(4), v)
	_, ok = n.Variants().Next().Value()
	assert.False(t, ok)

	n = n.Next()
	assert.Equal(t, NodeService, n.Kind())
	assert.Equal(t, "L", n.Dependencies().Path())
	f := n.Handlers()
	assert.Equal(t, "f", f.Name())
	assert.Equal(t, "u8", f.ReturnType().Name())
	assert.Equal(t, "g", f.Next().Name())
	assert.Nil(t, f.Next().ReturnType())
	assert.Equal(t, []int{0, 1, 2, 3}, []int{n.Dependencies().Order(), f.Order(), f.Next().Order(), n.Events().Order()})

	arg := n.Events().Arguments()
	param := arg.Attributes().Parameters()
	assert.Equal(t, "v", param.Name())
	value, ok := param.Value()
	assert.True(t, ok)
	assert.Equal(t, "w", value)

	assert.Nil(t, n.Next())
}

func TestDocument_FreeInvalidatesAccessors(t *testing.T) {
	before := Outstanding()
	doc, err := Parse("data P { x: u8, };")
	require.NoError(t, err)
	assert.Equal(t, before+1, Outstanding())

	n := doc.Nodes()
	doc.Free()
	doc.Free()
	assert.Equal(t, before, Outstanding())

	assert.Panics(t, func() { n.Name() })
	assert.Panics(t, func() { doc.Nodes() })
}

func TestParse_SyntaxError(t *testing.T) {
	before := Outstanding()
	doc, err := Parse("service S {\n\tfn f(a: u8;\n};")
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, before, Outstanding())

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "handler", se.Context)
	assert.Equal(t, 2, se.Line)
}
