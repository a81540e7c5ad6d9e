package config

import "time"

// WebSocket connection limits and constraints
const (
	// Rate limiting
	MaxMessagesPerSecond = 10
	RateLimitWindow      = time.Second

	// Timeouts
	WriteTimeout = 10 * time.Second
	PingInterval = 30 * time.Second
	PongTimeout  = 90 * time.Second // 3x ping interval for network delay tolerance

	// Channel buffers
	ClientSendBufferSize    = 256
	HubInboundBufferSize    = 256
	HubUnregisterBufferSize = 100

	// Room identifiers minted by GET /host fall in this range.
	MinRoomNumber  = 10000
	RoomNumberSpan = 90000
)
