package sim

// SendError marks a failure to send or deliver a message.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	e := new(SendError)
	return e
}

// A Connection delivers messages from the outgoing buffer of one port to the
// incoming buffer of another.
type Connection interface {
	Named
	Hookable

	// PlugIn attaches a port to the connection.
	PlugIn(port Port)

	// Unplug detaches a port from the connection.
	Unplug(port Port)

	// NotifyAvailable notifies that the given port can receive messages
	// again.
	NotifyAvailable(port Port)

	// NotifySend notifies that a port attached to the connection has a
	// message to send.
	NotifySend()
}

// HookPosConnStartSend marks when a connection accepts a message to send.
var HookPosConnStartSend = &HookPos{Name: "Conn Start Send"}

// HookPosConnStartTrans marks when a connection starts to transmit a message.
var HookPosConnStartTrans = &HookPos{Name: "Conn Start Trans"}

// HookPosConnDoneTrans marks when a connection completes transmitting a
// message.
var HookPosConnDoneTrans = &HookPos{Name: "Conn Done Trans"}

// HookPosConnDeliver marks when a connection delivers a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}
