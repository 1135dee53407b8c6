package ports

// Notification is one user-facing message. Persistent notifications stay
// visible until dismissed; transient ones are fire-and-forget.
type Notification struct {
	// Key deduplicates notifications: pushing twice with the same key
	// updates the existing notification in place.
	Key        string
	Title      string
	Message    string
	Persistent bool
}

// NotificationPublisher is the port through which wallet services surface
// messages to whatever UI shell embeds them.
type NotificationPublisher interface {
	// Push shows or updates the notification identified by its Key.
	Push(n Notification)
	// Dismiss removes a persistent notification. Unknown keys are ignored.
	Dismiss(key string)
	// Active returns the currently visible persistent notifications.
	Active() []Notification
}
