package buttons

import "log"

// Actions are the functions the buttons trigger. Nil entries are skipped.
type Actions struct {
	// Wake is called on every press. When it reports the display was off
	// the press only wakes it.
	Wake func() (wasOff bool)

	ToggleStopwatch func()
	ResetStopwatch  func()
	Mark            func() error
	ToggleRecording func() (bool, error)
	NextPage        func()
	ResetTrip       func()
}

// Dispatch runs the action for ev. Stopwatch button: short toggles, long
// resets. Record button: short marks an event, long toggles recording.
// Page button: short shows the next page, long resets the trip.
func (a Actions) Dispatch(ev Event) {
	if a.Wake != nil && a.Wake() {
		return
	}
	call := func(f func()) {
		if f != nil {
			f()
		}
	}
	switch {
	case ev.Button == Stopwatch && ev.Kind == Short:
		call(a.ToggleStopwatch)
	case ev.Button == Stopwatch && ev.Kind == Long:
		call(a.ResetStopwatch)
	case ev.Button == Record && ev.Kind == Short:
		if a.Mark != nil {
			if err := a.Mark(); err != nil {
				log.Printf("buttons: mark failed: %v", err)
			}
		}
	case ev.Button == Record && ev.Kind == Long:
		if a.ToggleRecording != nil {
			on, err := a.ToggleRecording()
			if err != nil {
				log.Printf("buttons: record toggle failed: %v", err)
				return
			}
			log.Printf("buttons: recording=%t", on)
		}
	case ev.Button == Page && ev.Kind == Short:
		call(a.NextPage)
	case ev.Button == Page && ev.Kind == Long:
		call(a.ResetTrip)
		log.Printf("buttons: trip reset")
	}
}
