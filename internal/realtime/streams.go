package realtime

// Named realtime streams exposed over the websocket hub.
const (
	StreamNotifications = "notifications"
	StreamSchedules     = "schedules"
)
