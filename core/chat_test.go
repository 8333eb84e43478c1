package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext_AddMessage(t *testing.T) {
	chat := NewChatContext()

	msg := chat.AddMessage(RoleUser, "hola")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, 1, chat.Len())
	assert.True(t, chat.Contains(msg.ID))
}

func TestChatContext_AppendDeduplicates(t *testing.T) {
	chat := NewChatContext()
	a := NewMessage(RoleUser, "uno")
	b := NewMessage(RoleAssistant, "dos")

	added := chat.Append([]Item{a, b})
	assert.Equal(t, 2, added)

	// Re-appending the same items is a no-op.
	added = chat.Append([]Item{a, b, NewMessage(RoleUser, "tres")})
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, chat.Len())
}

func TestChatContext_ItemsIsACopy(t *testing.T) {
	chat := NewChatContext()
	chat.AddMessage(RoleUser, "hola")

	items := chat.Items()
	items[0] = NewMessage(RoleAssistant, "mutated")

	assert.Equal(t, "hola", chat.Items()[0].(Message).Text)
}

func TestChatContext_CopyIsIndependent(t *testing.T) {
	chat := NewChatContext()
	chat.AddMessage(RoleUser, "hola")

	cp := chat.Copy()
	cp.AddMessage(RoleAssistant, "adios")

	assert.Equal(t, 1, chat.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestFunctionItems(t *testing.T) {
	fc := NewFunctionCall("call-1", "update_name", `{"name":"Ana"}`)
	assert.Equal(t, ItemTypeFunctionCall, fc.Type())
	assert.NotEmpty(t, fc.ItemID())
	assert.True(t, IsFunctionItem(fc))

	out := NewFunctionOutput("call-1", "update_name", "ok", nil)
	assert.Equal(t, ItemTypeFunctionOutput, out.Type())
	assert.Empty(t, out.Error)
	assert.True(t, IsFunctionItem(out))

	failed := NewFunctionOutput("call-2", "update_name", nil, errors.New("boom"))
	assert.Equal(t, "boom", failed.Error)

	msg := NewMessage(RoleSystem, "instrucciones")
	assert.False(t, IsFunctionItem(msg))
}

func TestToolContext_TransferSignal(t *testing.T) {
	rc := NewRunContext(context.Background(), "sess-1", "greeter", nil, nil)
	tc := NewToolContext(rc, "call-1")

	_, ok := tc.TransferTarget()
	assert.False(t, ok)

	tc.TransferTo("reservation")
	tc.TransferTo("takeaway") // later signal wins

	target, ok := tc.TransferTarget()
	require.True(t, ok)
	assert.Equal(t, "takeaway", target)
}

func TestToolContext_Validate(t *testing.T) {
	rc := NewRunContext(context.Background(), "sess-1", "greeter", nil, nil)

	tc := NewToolContext(rc, "call-1")
	assert.NoError(t, tc.Validate())
	assert.True(t, tc.IsValid())

	missing := NewToolContext(rc, "")
	assert.Error(t, missing.Validate())
	assert.False(t, missing.IsValid())
}

func TestRunContext_WithRole(t *testing.T) {
	data := map[string]string{"k": "v"}
	rc := NewRunContext(context.Background(), "sess-1", "greeter", data, nil)

	next := rc.WithRole("checkout")
	assert.Equal(t, "checkout", next.RoleName)
	assert.Equal(t, "greeter", rc.RoleName)
	assert.Equal(t, "sess-1", next.SessionID)
	assert.Equal(t, data, next.Data.(map[string]string))
}
