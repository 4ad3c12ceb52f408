package config

import "time"

const (
	// Notifications
	NotificationLimit        = 100
	DefaultNotificationPage  = 1
	DefaultNotificationLimit = 20

	// Matchmaking
	DefaultMaxRetries = 10
	// PairedMarkerTTL bounds how long a freshly matched partner's next
	// request skips the user it was just paired with.
	PairedMarkerTTL = 5 * time.Second

	// Rooms
	DefaultMaxParticipants = 10

	// WebSocket
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 64 * 1024
)

// BadgeThreshold is the number of accepted random match follows needed for a badge.
type BadgeThreshold struct {
	Badge   string
	Follows int
}

// BadgeThresholds is ordered from the highest badge to the lowest; only the
// first newly reached badge is awarded per accepted follow.
var BadgeThresholds = []BadgeThreshold{
	{Badge: "gold_star", Follows: 100},
	{Badge: "silver_star", Follows: 50},
	{Badge: "bronze_star", Follows: 25},
}
