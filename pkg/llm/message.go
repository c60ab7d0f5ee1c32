package llm

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one conversation turn sent to or received from the model.
// Images carries PNG screenshots attached to the turn; the provider encodes
// them for the wire.
type Message struct {
	Role    MessageRole
	Content string
	Images  [][]byte
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewUserImageMessage creates a user message with an attached screenshot.
func NewUserImageMessage(content string, png []byte) *Message {
	msg := &Message{Role: RoleUser, Content: content}
	if len(png) > 0 {
		msg.Images = [][]byte{png}
	}
	return msg
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}
