package core

import "github.com/google/uuid"

// Conversation roles used on Message items.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ItemType discriminates the closed set of chat item variants.
type ItemType string

const (
	// ItemTypeMessage is a plain role-attributed text message.
	ItemTypeMessage ItemType = "message"
	// ItemTypeFunctionCall is a tool invocation requested by the model.
	ItemTypeFunctionCall ItemType = "function_call"
	// ItemTypeFunctionOutput is the recorded result of a function call.
	ItemTypeFunctionOutput ItemType = "function_call_output"
)

// Item is a single entry in a conversation history. Concrete item types
// implement the unexported marker enabling a closed set. Items are treated
// as immutable once appended to a ChatContext; the identifier returned by
// ItemID is stable for the lifetime of the item and is the deduplication
// key when histories are spliced between roles.
type Item interface {
	ItemID() string
	Type() ItemType
	isItem()
}

// Message is a role-attributed text entry.
type Message struct {
	ID   string `json:"id"`
	Role string `json:"role"` // system, user or assistant
	Text string `json:"text"`
}

// NewMessage creates a Message with a generated identifier.
func NewMessage(role, text string) Message {
	return Message{ID: NewID(), Role: role, Text: text}
}

// ItemID returns the item's stable identifier.
func (m Message) ItemID() string { return m.ID }

// Type implements Item for Message.
func (m Message) Type() ItemType { return ItemTypeMessage }

func (Message) isItem() {}

// FunctionCall records a tool invocation requested by the model. CallID
// correlates the call with its FunctionOutput and with the provider-side
// tool call; Arguments is the serialized JSON argument payload.
type FunctionCall struct {
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// NewFunctionCall creates a FunctionCall item with a generated identifier.
func NewFunctionCall(callID, name, arguments string) FunctionCall {
	return FunctionCall{ID: NewID(), CallID: callID, Name: name, Arguments: arguments}
}

// ItemID returns the item's stable identifier.
func (f FunctionCall) ItemID() string { return f.ID }

// Type implements Item for FunctionCall.
func (f FunctionCall) Type() ItemType { return ItemTypeFunctionCall }

func (FunctionCall) isItem() {}

// FunctionOutput records the outcome of a previously emitted function call.
// Error is populated instead of Output when the tool failed.
type FunctionOutput struct {
	ID     string `json:"id"`
	CallID string `json:"call_id"` // matches the originating FunctionCall
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewFunctionOutput creates a FunctionOutput item with a generated
// identifier. If err is non-nil its message is copied into Error.
func NewFunctionOutput(callID, name string, output any, err error) FunctionOutput {
	fo := FunctionOutput{ID: NewID(), CallID: callID, Name: name, Output: output}
	if err != nil {
		fo.Error = err.Error()
	}
	return fo
}

// ItemID returns the item's stable identifier.
func (f FunctionOutput) ItemID() string { return f.ID }

// Type implements Item for FunctionOutput.
func (f FunctionOutput) Type() ItemType { return ItemTypeFunctionOutput }

func (FunctionOutput) isItem() {}

// IsFunctionItem reports whether the item is a function call or a function
// call output. A spliced history must never begin with one of these.
func IsFunctionItem(it Item) bool {
	t := it.Type()
	return t == ItemTypeFunctionCall || t == ItemTypeFunctionOutput
}

// NewID generates a new unique identifier for chat items and sessions.
func NewID() string { return uuid.NewString() }
