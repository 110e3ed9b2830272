package input

// MouseButton selects which button an event refers to.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
)

// Driver is the OS-level injection boundary: absolute cursor control, button
// and wheel events, and per-key keyboard events. Implementations live at the
// platform edge; the synthesizer and all tests run against this interface.
type Driver interface {
	Position() (x, y int)
	SetPosition(x, y int)
	ButtonDown(b MouseButton)
	ButtonUp(b MouseButton)
	// Wheel injects delta in notches; positive scrolls toward zoom-in.
	Wheel(notches int)
	KeyDown(key string)
	KeyUp(key string)
}
