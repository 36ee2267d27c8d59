package session

// EventType identifies a session notification.
type EventType int

const (
	// PeakChanged follows any change of a peak's rows or its removal
	PeakChanged EventType = iota
	// SelectionChanged follows a change of the current peak
	SelectionChanged
	// FitProgress reports one global fit iteration
	FitProgress
)

func (t EventType) String() string {
	switch t {
	case PeakChanged:
		return "peak_changed"
	case SelectionChanged:
		return "selection_changed"
	case FitProgress:
		return "fit_progress"
	}
	return "unknown"
}

// Event is delivered to every subscribed Listener.
type Event struct {
	Type   EventType
	PeakID int
	// Removed is set on the PeakChanged event of a deleted peak
	Removed bool

	// Channel, Iteration and Residual describe FitProgress
	Channel   int
	Iteration int
	Residual  float64
}

// Listener receives session events on the goroutine that caused them.
type Listener func(Event)
