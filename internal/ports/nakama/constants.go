package nakama

import "time"

const (
	// SocketPath is the realtime endpoint relative to the server root.
	SocketPath = "/ws"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20

	sendQueueSize = 256
)
