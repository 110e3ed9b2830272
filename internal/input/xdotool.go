package input

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// XdoDriver injects events through the xdotool binary on X11 desktops. Each
// call shells out; the synthesizer's pacing dominates the exec overhead.
type XdoDriver struct {
	bin string
	log *zap.Logger

	lastX, lastY int
}

// NewXdoDriver locates xdotool on PATH.
func NewXdoDriver(log *zap.Logger) (*XdoDriver, error) {
	bin, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("xdotool not found: %w", err)
	}
	return &XdoDriver{bin: bin, log: log}, nil
}

func (d *XdoDriver) run(args ...string) {
	if err := exec.Command(d.bin, args...).Run(); err != nil {
		d.log.Warn("xdotool failed", zap.Strings("args", args), zap.Error(err))
	}
}

// Position returns the cursor location as reported by the X server, falling
// back to the last injected position when the query fails.
func (d *XdoDriver) Position() (int, int) {
	out, err := exec.Command(d.bin, "getmouselocation", "--shell").Output()
	if err != nil {
		return d.lastX, d.lastY
	}
	x, y := d.lastX, d.lastY
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := strings.CutPrefix(line, "X="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				x = n
			}
		}
		if v, ok := strings.CutPrefix(line, "Y="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				y = n
			}
		}
	}
	return x, y
}

func (d *XdoDriver) SetPosition(x, y int) {
	d.lastX, d.lastY = x, y
	d.run("mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *XdoDriver) ButtonDown(b MouseButton) {
	d.run("mousedown", xdoButton(b))
}

func (d *XdoDriver) ButtonUp(b MouseButton) {
	d.run("mouseup", xdoButton(b))
}

// Wheel maps positive notches to button 4 (scroll up) per X convention.
func (d *XdoDriver) Wheel(notches int) {
	button := "4"
	if notches < 0 {
		button = "5"
		notches = -notches
	}
	for i := 0; i < notches; i++ {
		d.run("click", button)
	}
}

func (d *XdoDriver) KeyDown(key string) {
	d.run("keydown", key)
}

func (d *XdoDriver) KeyUp(key string) {
	d.run("keyup", key)
}

func xdoButton(b MouseButton) string {
	switch b {
	case ButtonMiddle:
		return "2"
	case ButtonRight:
		return "3"
	default:
		return "1"
	}
}
