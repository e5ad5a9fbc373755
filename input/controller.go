package input

import (
	"log/slog"

	"github.com/PropzSaladaz/Laze/action"
	"github.com/PropzSaladaz/Laze/config"
	"github.com/PropzSaladaz/Laze/keybind"
	"github.com/PropzSaladaz/Laze/server"
)

// Controller is the server's dispatcher: it drains encoded frames, applies
// every action through the synthesizer, and reports the first Disconnect.
//
// Synthesis failures are logged and skipped, matching the fail-soft policy
// for unmapped keys: a bad key never kills the session. Decode failures do.
type Controller struct {
	synth Synthesizer
	binds *keybind.Map
	clip  *clipboard

	moveXSense int
	moveYSense int
	wheelSense int
}

// NewController builds a controller around the given synthesizer, using the
// default keybindings and the configured sensitivities.
func NewController(synth Synthesizer, cfg config.InputConfig) *Controller {
	return &Controller{
		synth:      synth,
		binds:      keybind.NewMap(),
		clip:       newClipboard(),
		moveXSense: max(cfg.MoveXSense, 1),
		moveYSense: max(cfg.MoveYSense, 1),
		wheelSense: max(cfg.WheelSense, 1),
	}
}

// Dispatch decodes and applies every action in frame, in byte order. The
// frame may carry several concatenated actions; it is fully drained unless
// a Disconnect cuts it short or a decode error aborts it.
func (c *Controller) Dispatch(frame []byte) (server.Status, error) {
	dec := action.NewDecoder(frame)
	for dec.More() {
		a, err := dec.Next()
		if err != nil {
			return server.Connected, err
		}
		slog.Debug("action received", "action", a)
		if c.apply(a) == server.Disconnected {
			// Remaining actions in the frame are discarded.
			return server.Disconnected, nil
		}
	}
	return server.Connected, nil
}

func (c *Controller) apply(a action.Action) server.Status {
	switch act := a.(type) {
	case action.KeyPress:
		c.pressKey(act.Key)
	case action.Text:
		c.typeText(string(rune(act.Ch)))
	case action.Scroll:
		c.logErr("scroll", c.synth.Scroll(int(act.Delta)*c.wheelSense))
	case action.MouseMove:
		c.logErr("mouse move", c.synth.MoveMouse(
			int(act.DX)*c.moveXSense,
			int(act.DY)*c.moveYSense,
		))
	case action.MouseClick:
		c.pressButton(act.Button, c.synth.ButtonClick)
	case action.MouseDown:
		c.pressButton(act.Button, c.synth.ButtonDown)
	case action.MouseUp:
		c.pressButton(act.Button, c.synth.ButtonUp)
	case action.Disconnect:
		return server.Disconnected
	case action.Shutdown:
		c.logErr("shutdown", spawnShutdown())
	case action.TerminalCommand:
		c.logErr("terminal command", spawnCommand(act.Command))
	}
	return server.Connected
}

// pressKey applies the host combo bound to k: press every key in order,
// release in reverse order. Unmapped keys log a warning and do nothing.
func (c *Controller) pressKey(k action.Key) {
	combo, ok := c.binds.Key(k)
	if !ok {
		slog.Warn("key is not mapped for current OS", "key", k.String())
		return
	}
	if len(combo) == 1 {
		c.logErr("key tap", c.synth.KeyTap(combo[0]))
		return
	}
	c.pressCombo(combo)
}

func (c *Controller) pressButton(b action.Button, f func(keybind.MouseButton) error) {
	mb, ok := c.binds.Button(b)
	if !ok {
		slog.Warn("button is not mapped for current OS", "button", b.String())
		return
	}
	c.logErr("mouse button", f(mb))
}

func (c *Controller) typeText(text string) {
	c.logErr("type text", c.synth.TypeText(text))
}

// PasteText places text on the host clipboard and issues Ctrl+V. Used for
// payloads too large or too exotic to synthesize keystroke by keystroke.
func (c *Controller) PasteText(text string) error {
	if err := c.clip.write(text); err != nil {
		return err
	}
	c.pressCombo(keybind.Combo{keybind.Named(keybind.NameControl), keybind.Rune('v')})
	return nil
}

func (c *Controller) pressCombo(combo keybind.Combo) {
	for _, sym := range combo {
		c.logErr("key down", c.synth.KeyDown(sym))
	}
	for i := len(combo) - 1; i >= 0; i-- {
		c.logErr("key up", c.synth.KeyUp(combo[i]))
	}
}

// AdjustSensitivity shifts pointer sensitivity by delta, clamped to at
// least 1.
func (c *Controller) AdjustSensitivity(delta int) {
	c.moveXSense = max(c.moveXSense+delta, 1)
	c.moveYSense = c.moveXSense
}

// Sensitivity reports the current pointer sensitivity.
func (c *Controller) Sensitivity() int {
	return c.moveXSense
}

func (c *Controller) logErr(what string, err error) {
	if err != nil {
		slog.Error("input synthesis failed", "what", what, "err", err)
	}
}
