package domain

// JoinCommand asks the hub to bind a display name to a connection.
type JoinCommand struct {
	ConnectionID ConnectionID
	Name         string
}

// SendCommand asks the hub to broadcast a chat message.
type SendCommand struct {
	ConnectionID ConnectionID
	Text         string
}
