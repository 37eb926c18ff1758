package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wildrose/internal/domain"
)

func newTestExecutor(t *testing.T, tools ...domain.Tool) *Executor {
	t.Helper()
	reg := NewRegistry(nil)
	for _, tl := range tools {
		require.NoError(t, reg.Register(tl))
	}
	return NewExecutor(reg, nil)
}

func TestExecutorUnknownToolIsolated(t *testing.T) {
	purr := &stubTool{name: "purr"}
	exec := newTestExecutor(t, purr)

	outcomes := exec.Execute(context.Background(), []domain.ToolCall{
		{Name: "fly"},
		{Name: "purr"},
	})

	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, domain.ErrUnknownTool)
	assert.True(t, outcomes[1].OK())
	assert.Equal(t, "ok", outcomes[1].Result.Content)
	assert.Len(t, purr.got, 1)

	unknown := 0
	for _, o := range outcomes {
		if o.Err != nil && domain.ErrorCodeOf(o.Err) == domain.CodeUnknownTool {
			unknown++
		}
	}
	assert.Equal(t, 1, unknown)
}

func TestExecutorMalformedArgumentsSkipped(t *testing.T) {
	say := &stubTool{name: "say"}
	exec := newTestExecutor(t, say)

	outcomes := exec.Execute(context.Background(), []domain.ToolCall{
		{Name: "say", Arguments: json.RawMessage(`"{not json"`)},
		{Name: "say", Arguments: json.RawMessage(`{"message":"hi"}`)},
	})

	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, domain.ErrMalformedArguments)
	assert.True(t, outcomes[1].OK())
	require.Len(t, say.got, 1)
	assert.Equal(t, "hi", say.got[0].String("message"))
}

func TestExecutorCapabilityFailureIsolated(t *testing.T) {
	failing := &stubTool{name: "meow", fn: func(domain.Arguments) (*domain.ToolResult, error) {
		return nil, errStub
	}}
	ok := &stubTool{name: "idle"}
	exec := newTestExecutor(t, failing, ok)

	outcomes := exec.Execute(context.Background(), []domain.ToolCall{{Name: "meow"}, {Name: "idle"}})

	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, domain.ErrToolFailure)
	assert.ErrorIs(t, outcomes[0].Err, errStub)
	assert.True(t, outcomes[1].OK())
}

func TestExecutorRecoversPanic(t *testing.T) {
	boom := &stubTool{name: "boom", fn: func(domain.Arguments) (*domain.ToolResult, error) {
		panic("kaboom")
	}}
	after := &stubTool{name: "idle"}
	exec := newTestExecutor(t, boom, after)

	outcomes := exec.Execute(context.Background(), []domain.ToolCall{{Name: "boom"}, {Name: "idle"}})

	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, domain.ErrToolFailure)
	assert.Contains(t, outcomes[0].Err.Error(), "kaboom")
	assert.True(t, outcomes[1].OK())
}

func TestExecutorArgumentFormsEquivalent(t *testing.T) {
	say := &stubTool{name: "say", schema: sayParameters}
	exec := newTestExecutor(t, say)

	outcomes := exec.Execute(context.Background(), []domain.ToolCall{
		{Name: "say", Arguments: json.RawMessage(`{"message":"hello"}`)},
		{Name: "say", Arguments: json.RawMessage(`"{\"message\":\"hello\"}"`)},
	})

	for _, o := range outcomes {
		require.NoError(t, o.Err)
	}
	require.Len(t, say.got, 2)
	assert.Equal(t, say.got[0], say.got[1])
}

func TestExecutorSchemaViolation(t *testing.T) {
	say := &stubTool{name: "say", schema: sayParameters}
	exec := newTestExecutor(t, say)

	outcomes := exec.Execute(context.Background(), []domain.ToolCall{
		{Name: "say"},
		{Name: "say", Arguments: json.RawMessage(`{"message": 42}`)},
	})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, domain.ErrMalformedArguments)
	}
	assert.Empty(t, say.got, "invalid arguments must not reach the capability")
}

func TestExecutorNilResultBecomesEmpty(t *testing.T) {
	quiet := &stubTool{name: "quiet", fn: func(domain.Arguments) (*domain.ToolResult, error) {
		return nil, nil
	}}
	out := newTestExecutor(t, quiet).ExecuteOne(context.Background(), domain.ToolCall{Name: "quiet"})
	require.NoError(t, out.Err)
	require.NotNil(t, out.Result)
	assert.Empty(t, out.Result.Content)
}

func TestExecutorEmptyBatch(t *testing.T) {
	assert.Empty(t, newTestExecutor(t).Execute(context.Background(), nil))
}
