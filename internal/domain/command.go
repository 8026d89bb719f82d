package domain

// CommandContext carries a parsed chat command to its handler.
type CommandContext struct {
	ChatID   string
	SenderID string
	Command  string
	Args     []string
	Message  *InboundMessage
}

// IsGroup reports whether the command was issued in a group.
func (c *CommandContext) IsGroup() bool {
	return c != nil && c.Message != nil && c.Message.IsGroup()
}
