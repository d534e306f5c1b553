package services

// EventTracker receives assessment lifecycle events. Implementations must not block.
type EventTracker interface {
	Track(distinctID, event string, properties map[string]any)
}

type noopTracker struct{}

func (noopTracker) Track(string, string, map[string]any) {}

func trackerOrNoop(t EventTracker) EventTracker {
	if t == nil {
		return noopTracker{}
	}
	return t
}
