package tickwatcher

const (
	QuitSignal EventType = iota
	TickUpdate
)

type EventType int

func (et EventType) String() string {
	switch et {
	case QuitSignal:
		return "QuitSignal"
	case TickUpdate:
		return "TickUpdate"
	default:
		return "Unknown"
	}
}

// Event is emitted through the watcher channel during observation.
type Event interface {
	Type() EventType
}

type QuitEvent struct{}

func (q QuitEvent) Type() EventType {
	return QuitSignal
}

// TickEvent carries the latest network tick observed by one polling cycle.
type TickEvent struct {
	Tick uint32
}

func (t TickEvent) Type() EventType {
	return TickUpdate
}
