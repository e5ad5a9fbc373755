// Package keybind maps the abstract keys and buttons of the action stream
// onto host OS key symbols.
package keybind

import (
	"fmt"

	"github.com/PropzSaladaz/Laze/action"
)

// Name identifies a non-printable host key.
type Name uint8

const (
	NameNone Name = iota
	NameRune
	NameBackspace
	NameReturn
	NameTab
	NameControl
	NameShift
	NameF11
	NameVolumeMute
	NameVolumeDown
	NameVolumeUp
	NameMediaStop
	NameMediaPlayPause
)

var names = map[Name]string{
	NameNone:           "none",
	NameRune:           "rune",
	NameBackspace:      "backspace",
	NameReturn:         "return",
	NameTab:            "tab",
	NameControl:        "control",
	NameShift:          "shift",
	NameF11:            "f11",
	NameVolumeMute:     "volume-mute",
	NameVolumeDown:     "volume-down",
	NameVolumeUp:       "volume-up",
	NameMediaStop:      "media-stop",
	NameMediaPlayPause: "media-play-pause",
}

// Sym is one host key symbol: a named key or a printable rune.
type Sym struct {
	Name Name
	Rune rune
}

// Named returns the symbol for a non-printable key.
func Named(n Name) Sym {
	return Sym{Name: n}
}

// Rune returns the symbol for a printable key.
func Rune(r rune) Sym {
	return Sym{Name: NameRune, Rune: r}
}

func (s Sym) String() string {
	if s.Name == NameRune {
		return fmt.Sprintf("%q", s.Rune)
	}
	if n, ok := names[s.Name]; ok {
		return n
	}
	return fmt.Sprintf("sym(%d)", uint8(s.Name))
}

// Combo is an ordered chord of host keys. It is applied by pressing every
// key in order, then releasing in reverse order.
type Combo []Sym

// MouseButton identifies a host mouse button.
type MouseButton uint8

const MouseLeft MouseButton = 0

// Map is the read-only binding table built at startup. Keys or buttons with
// no entry produce no host effect.
type Map struct {
	keys    map[action.Key]Combo
	buttons map[action.Button]MouseButton
}

// NewMap returns the default bindings.
func NewMap() *Map {
	return &Map{
		keys: map[action.Key]Combo{
			action.KeyBackspace:      {Named(NameBackspace)},
			action.KeyVolumeMute:     {Named(NameVolumeMute)},
			action.KeyVolumeDown:     {Named(NameVolumeDown)},
			action.KeyVolumeUp:       {Named(NameVolumeUp)},
			action.KeyMediaStop:      {Named(NameMediaStop)},
			action.KeyMediaPlayPause: {Named(NameMediaPlayPause)},
			action.KeyEnter:          {Named(NameReturn)},
			action.KeyFullscreen:     {Named(NameF11)},
			action.KeyCloseTab:       {Named(NameControl), Rune('w')},
			action.KeyNextTab:        {Named(NameControl), Named(NameTab)},
			action.KeyPreviousTab:    {Named(NameControl), Named(NameShift), Named(NameTab)},
			// KeyBrightnessDown has no host mapping.
		},
		buttons: map[action.Button]MouseButton{
			action.ButtonLeft: MouseLeft,
		},
	}
}

// Key returns the host combo bound to k.
func (m *Map) Key(k action.Key) (Combo, bool) {
	c, ok := m.keys[k]
	return c, ok
}

// Button returns the host mouse button bound to b.
func (m *Map) Button(b action.Button) (MouseButton, bool) {
	mb, ok := m.buttons[b]
	return mb, ok
}
