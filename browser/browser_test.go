package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magalia-labs/voicemesh/model"
)

func newTestActions(exec func(ctx context.Context, acts ...chromedp.Action) error) *actions {
	return &actions{
		ctx:     context.Background(),
		timeout: time.Second,
		exec:    exec,
	}
}

func TestNewRunner_RequiresModel(t *testing.T) {
	_, err := NewRunner(nil)
	require.Error(t, err)
}

func TestRunner_FinishEndsTask(t *testing.T) {
	task := "find the cheapest pizza"
	mock := model.NewMockModel("test", "mock")
	mock.AddToolCall(task, model.ToolCall{ID: "call-1", Name: "navigate", Arguments: `{"url":"https://example.com"}`})
	mock.AddToolCall(task, model.ToolCall{ID: "call-2", Name: "finish", Arguments: `{"result":"Pizza costs $10."}`})

	runner, err := NewRunner(mock)
	require.NoError(t, err)

	navigated := 0
	b := newTestActions(func(ctx context.Context, acts ...chromedp.Action) error {
		navigated++
		return nil
	})

	result, err := runner.loop(context.Background(), task, b, b.tools())
	require.NoError(t, err)
	assert.Equal(t, "Pizza costs $10.", result)
	assert.Equal(t, 1, navigated)
	assert.True(t, b.done)
}

func TestRunner_TextReplyEndsTask(t *testing.T) {
	task := "what is on the page"
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse(task, "Nothing to do.")

	runner, err := NewRunner(mock)
	require.NoError(t, err)

	b := newTestActions(func(ctx context.Context, acts ...chromedp.Action) error { return nil })

	result, err := runner.loop(context.Background(), task, b, b.tools())
	require.NoError(t, err)
	assert.Equal(t, "Nothing to do.", result)
}

func TestRunner_MaxStepsExceeded(t *testing.T) {
	task := "loop forever"
	mock := model.NewMockModel("test", "mock")
	for i := 0; i < 3; i++ {
		mock.AddToolCall(task, model.ToolCall{ID: "call", Name: "read_page", Arguments: `{}`})
	}

	runner, err := NewRunner(mock, func(o *Options) { o.MaxSteps = 3 })
	require.NoError(t, err)

	b := newTestActions(func(ctx context.Context, acts ...chromedp.Action) error { return nil })

	_, err = runner.loop(context.Background(), task, b, b.tools())
	require.ErrorIs(t, err, ErrMaxSteps)
}

func TestRunner_UnknownToolRecoverable(t *testing.T) {
	task := "use a bad tool"
	mock := model.NewMockModel("test", "mock")
	mock.AddToolCall(task, model.ToolCall{ID: "call-1", Name: "teleport", Arguments: `{}`})
	mock.AddResponse(task, "Gave up on teleporting.")

	runner, err := NewRunner(mock)
	require.NoError(t, err)

	b := newTestActions(func(ctx context.Context, acts ...chromedp.Action) error { return nil })

	result, err := runner.loop(context.Background(), task, b, b.tools())
	require.NoError(t, err)
	assert.Equal(t, "Gave up on teleporting.", result)
}

func TestActions_ToolSchemas(t *testing.T) {
	b := newTestActions(nil)

	names := make([]string, 0)
	for _, tl := range b.tools() {
		names = append(names, tl.Name())
		assert.NotEmpty(t, tl.Description())
		assert.Equal(t, "object", tl.Parameters()["type"])
	}
	assert.Equal(t, []string{"navigate", "click", "type", "read_page", "finish"}, names)
}
