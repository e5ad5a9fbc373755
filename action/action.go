// Package action defines the binary input-action stream exchanged between
// mobile clients and the server, and its codec.
//
// A frame is a concatenation of self-delimiting actions. Each action is a
// 1-byte tag followed by the variant's fixed payload (TerminalCommand is the
// only variable-length variant, length-prefixed with one byte).
package action

import "fmt"

// Action tag values. Stable wire constants, never reordered.
const (
	TagKeyPress        uint8 = 0
	TagText            uint8 = 1
	TagScroll          uint8 = 2
	TagMouseMove       uint8 = 3
	TagMouseClick      uint8 = 4
	TagDisconnect      uint8 = 5
	TagShutdown        uint8 = 6
	TagTerminalCommand uint8 = 7
	TagMouseDown       uint8 = 8
	TagMouseUp         uint8 = 9
)

// Key is the closed set of abstract keys a client can press. Values are
// wire constants.
type Key uint8

const (
	KeyBackspace Key = iota
	KeyVolumeMute
	KeyVolumeDown
	KeyVolumeUp
	KeyMediaStop
	KeyMediaPlayPause
	KeyEnter
	KeyFullscreen
	KeyCloseTab
	KeyNextTab
	KeyPreviousTab
	KeyBrightnessDown

	keyMax = KeyBrightnessDown

	// KeyUnknown is the fail-soft decode target for key codes newer than
	// this server. It is never applied to the host.
	KeyUnknown Key = 0xFF
)

var keyNames = map[Key]string{
	KeyBackspace:      "backspace",
	KeyVolumeMute:     "volume-mute",
	KeyVolumeDown:     "volume-down",
	KeyVolumeUp:       "volume-up",
	KeyMediaStop:      "media-stop",
	KeyMediaPlayPause: "media-play-pause",
	KeyEnter:          "enter",
	KeyFullscreen:     "fullscreen",
	KeyCloseTab:       "close-tab",
	KeyNextTab:        "next-tab",
	KeyPreviousTab:    "previous-tab",
	KeyBrightnessDown: "brightness-down",
	KeyUnknown:        "unknown",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", uint8(k))
}

// KeyByName resolves a key from its string name, for the CLI.
func KeyByName(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name && k != KeyUnknown {
			return k, true
		}
	}
	return KeyUnknown, false
}

// Button is the closed set of mouse buttons. Values are wire constants.
type Button uint8

const ButtonLeft Button = 0

func (b Button) String() string {
	if b == ButtonLeft {
		return "left"
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// Action is one unit of input-synthesis intent decoded from the wire.
type Action interface {
	Tag() uint8
	appendPayload(dst []byte) []byte
}

type KeyPress struct {
	Key Key
}

type Text struct {
	Ch byte
}

type Scroll struct {
	Delta int8
}

type MouseMove struct {
	DX int8
	DY int8
}

type MouseClick struct {
	Button Button
}

type MouseDown struct {
	Button Button
}

type MouseUp struct {
	Button Button
}

type Disconnect struct{}

type Shutdown struct{}

type TerminalCommand struct {
	Command string
}

func (KeyPress) Tag() uint8        { return TagKeyPress }
func (Text) Tag() uint8            { return TagText }
func (Scroll) Tag() uint8          { return TagScroll }
func (MouseMove) Tag() uint8       { return TagMouseMove }
func (MouseClick) Tag() uint8      { return TagMouseClick }
func (Disconnect) Tag() uint8      { return TagDisconnect }
func (Shutdown) Tag() uint8        { return TagShutdown }
func (TerminalCommand) Tag() uint8 { return TagTerminalCommand }
func (MouseDown) Tag() uint8       { return TagMouseDown }
func (MouseUp) Tag() uint8         { return TagMouseUp }
