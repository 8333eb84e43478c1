package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magalia-labs/voicemesh/core"
)

func msg(role, text string) core.Message { return core.NewMessage(role, text) }

func exchange(n int) []core.Item {
	items := make([]core.Item, 0, n*2)
	for i := 0; i < n; i++ {
		items = append(items,
			msg(core.RoleUser, fmt.Sprintf("user %d", i)),
			msg(core.RoleAssistant, fmt.Sprintf("assistant %d", i)),
		)
	}
	return items
}

func TestTruncate_KeepsLastNChronological(t *testing.T) {
	items := exchange(10) // 20 messages

	out := Truncate(items, 6, false, false)
	assert.Len(t, out, 6)

	// Newest six, oldest first.
	assert.Equal(t, "assistant 7", out[0].(core.Message).Text)
	assert.Equal(t, "user 8", out[1].(core.Message).Text)
	assert.Equal(t, "assistant 9", out[5].(core.Message).Text)
}

func TestTruncate_ShortHistoryUnchanged(t *testing.T) {
	items := exchange(2)
	out := Truncate(items, 6, false, false)
	assert.Len(t, out, 4)
	assert.Equal(t, "user 0", out[0].(core.Message).Text)
}

func TestTruncate_SkipsSystemMessages(t *testing.T) {
	items := []core.Item{
		msg(core.RoleSystem, "old summary"),
		msg(core.RoleUser, "hi"),
		msg(core.RoleSystem, "another summary"),
		msg(core.RoleAssistant, "hello"),
	}

	out := Truncate(items, 6, false, false)
	assert.Len(t, out, 2)
	for _, it := range out {
		assert.NotEqual(t, core.RoleSystem, it.(core.Message).Role)
	}

	kept := Truncate(items, 6, true, false)
	assert.Len(t, kept, 4)
}

func TestTruncate_SkipsFunctionItemsByDefault(t *testing.T) {
	call := core.NewFunctionCall("call_1", "update_name", `{"name":"Ana"}`)
	output := core.NewFunctionOutput("call_1", "update_name", "The name is updated to Ana", nil)
	items := []core.Item{
		msg(core.RoleUser, "my name is Ana"),
		call,
		output,
		msg(core.RoleAssistant, "Thanks Ana."),
	}

	out := Truncate(items, 6, false, false)
	assert.Len(t, out, 2)
	assert.Equal(t, "my name is Ana", out[0].(core.Message).Text)
	assert.Equal(t, "Thanks Ana.", out[1].(core.Message).Text)
}

func TestTruncate_KeepFunctionCallsPreservesPairs(t *testing.T) {
	call := core.NewFunctionCall("call_1", "update_name", `{"name":"Ana"}`)
	output := core.NewFunctionOutput("call_1", "update_name", "ok", nil)
	items := []core.Item{
		msg(core.RoleUser, "my name is Ana"),
		call,
		output,
		msg(core.RoleAssistant, "Thanks Ana."),
	}

	out := Truncate(items, 6, false, true)
	assert.Len(t, out, 4)
	assert.Equal(t, core.ItemTypeFunctionCall, out[1].Type())
	assert.Equal(t, core.ItemTypeFunctionOutput, out[2].Type())
}

func TestTruncate_NeverStartsWithFunctionItem(t *testing.T) {
	// A window that would slice mid tool exchange: the leading orphaned
	// function items must be dropped even below the keep limit.
	items := []core.Item{
		msg(core.RoleUser, "old"),
		core.NewFunctionCall("call_1", "update_name", `{}`),
		core.NewFunctionOutput("call_1", "update_name", "ok", nil),
		msg(core.RoleAssistant, "done"),
		msg(core.RoleUser, "next"),
	}

	out := Truncate(items, 4, false, true)
	assert.NotEmpty(t, out)
	assert.False(t, core.IsFunctionItem(out[0]), "carried history must not start with a function item")
	assert.Equal(t, "done", out[0].(core.Message).Text)
}

func TestTruncate_AllFunctionItemsYieldsEmpty(t *testing.T) {
	items := []core.Item{
		core.NewFunctionCall("call_1", "noop", `{}`),
		core.NewFunctionOutput("call_1", "noop", "ok", nil),
	}
	assert.Empty(t, Truncate(items, 6, false, true))
}

func TestTruncate_PureFunction(t *testing.T) {
	items := exchange(5)
	snapshot := make([]core.Item, len(items))
	copy(snapshot, items)

	_ = Truncate(items, 3, false, false)
	assert.Equal(t, snapshot, items)
}

func TestTruncate_ZeroKeep(t *testing.T) {
	assert.Empty(t, Truncate(exchange(3), 0, false, false))
}
