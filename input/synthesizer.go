// Package input turns decoded action streams into host OS effects. The
// actual key/mouse injection is behind the Synthesizer interface; this
// package owns the dispatch loop, the keybinding translation, sensitivity
// scaling, clipboard access and child-process spawning.
package input

import (
	"log/slog"

	"github.com/PropzSaladaz/Laze/keybind"
)

// Synthesizer is the OS input backend contract. Implementations live
// outside this module (uinput, SendInput, CGEvent, ...); the package ships
// a logging stand-in for dry runs and tests.
type Synthesizer interface {
	KeyDown(s keybind.Sym) error
	KeyUp(s keybind.Sym) error
	KeyTap(s keybind.Sym) error
	TypeText(text string) error
	MoveMouse(dx, dy int) error
	Scroll(delta int) error
	ButtonDown(b keybind.MouseButton) error
	ButtonUp(b keybind.MouseButton) error
	ButtonClick(b keybind.MouseButton) error
}

// LogSynthesizer records every synthesis call at debug level and applies
// nothing. It backs `laze serve`.
type LogSynthesizer struct{}

func NewLogSynthesizer() *LogSynthesizer {
	return &LogSynthesizer{}
}

func (*LogSynthesizer) KeyDown(s keybind.Sym) error {
	slog.Debug("synth key down", "sym", s.String())
	return nil
}

func (*LogSynthesizer) KeyUp(s keybind.Sym) error {
	slog.Debug("synth key up", "sym", s.String())
	return nil
}

func (*LogSynthesizer) KeyTap(s keybind.Sym) error {
	slog.Debug("synth key tap", "sym", s.String())
	return nil
}

func (*LogSynthesizer) TypeText(text string) error {
	slog.Debug("synth type text", "text", text)
	return nil
}

func (*LogSynthesizer) MoveMouse(dx, dy int) error {
	slog.Debug("synth mouse move", "dx", dx, "dy", dy)
	return nil
}

func (*LogSynthesizer) Scroll(delta int) error {
	slog.Debug("synth scroll", "delta", delta)
	return nil
}

func (*LogSynthesizer) ButtonDown(b keybind.MouseButton) error {
	slog.Debug("synth button down", "button", uint8(b))
	return nil
}

func (*LogSynthesizer) ButtonUp(b keybind.MouseButton) error {
	slog.Debug("synth button up", "button", uint8(b))
	return nil
}

func (*LogSynthesizer) ButtonClick(b keybind.MouseButton) error {
	slog.Debug("synth button click", "button", uint8(b))
	return nil
}
