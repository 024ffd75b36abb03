package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/questplan/internal/llm"
)

// fakeOp is a simple Operation for registry tests.
type fakeOp struct {
	name   string
	result Result
	panics bool
}

func (f *fakeOp) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        f.name,
		Description: "fake",
		InputSchema: MustSchema(map[string]any{"type": "object"}),
	}
}

func (f *fakeOp) Execute(context.Context, json.RawMessage) Result {
	if f.panics {
		panic("boom")
	}
	return f.result
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeOp{name: "op_a"})

	got, ok := r.Get("op_a")
	require.True(t, ok)
	assert.Equal(t, "op_a", got.Schema().Name)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeOp{name: "dup"})
	assert.Panics(t, func() {
		r.Register(&fakeOp{name: "dup"})
	})
}

func TestRegistry_SchemasKeepOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeOp{name: "t2"})
	r.Register(&fakeOp{name: "t1"})

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "t2", schemas[0].Name)
	assert.Equal(t, []string{"t2", "t1"}, r.Names())
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeOp{name: "greet", result: Result{Success: true, Message: "hello"}})

	res := r.Execute(context.Background(), "greet", json.RawMessage(`{}`))
	assert.True(t, res.Success)
	assert.Equal(t, "hello", res.Text())
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	res := NewRegistry().Execute(context.Background(), "ghost", nil)
	assert.False(t, res.Success)
	assert.Equal(t, CodeUnknownTool, res.Code)
}

func TestRegistry_ExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeOp{name: "bad", panics: true})

	res := r.Execute(context.Background(), "bad", nil)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInternal, res.Code)
}
