package action

import (
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Decoder walks a byte slice and yields the actions it contains. A single
// TCP read may carry several concatenated actions; callers loop with More
// and Next until the slice is drained.
//
// The decoder allocates only for TerminalCommand payloads.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// More reports whether undecoded bytes remain.
func (d *Decoder) More() bool {
	return d.off < len(d.buf)
}

// Next decodes the next action, advancing past its exact footprint.
// Unknown tags, truncated payloads and invalid TerminalCommand UTF-8 are
// fatal for the frame.
func (d *Decoder) Next() (Action, error) {
	tag, err := d.u8("tag")
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagKeyPress:
		code, err := d.u8("key code")
		if err != nil {
			return nil, err
		}
		return KeyPress{Key: decodeKey(code)}, nil
	case TagText:
		ch, err := d.u8("text char")
		if err != nil {
			return nil, err
		}
		return Text{Ch: ch}, nil
	case TagScroll:
		v, err := d.u8("scroll delta")
		if err != nil {
			return nil, err
		}
		return Scroll{Delta: int8(v)}, nil
	case TagMouseMove:
		x, err := d.u8("mouse delta x")
		if err != nil {
			return nil, err
		}
		y, err := d.u8("mouse delta y")
		if err != nil {
			return nil, err
		}
		return MouseMove{DX: int8(x), DY: int8(y)}, nil
	case TagMouseClick:
		b, err := d.button()
		if err != nil {
			return nil, err
		}
		return MouseClick{Button: b}, nil
	case TagDisconnect:
		return Disconnect{}, nil
	case TagShutdown:
		return Shutdown{}, nil
	case TagTerminalCommand:
		n, err := d.u8("command length")
		if err != nil {
			return nil, err
		}
		if d.off+int(n) > len(d.buf) {
			return nil, fmt.Errorf("action: truncated command payload: want %d bytes, have %d", n, len(d.buf)-d.off)
		}
		raw := d.buf[d.off : d.off+int(n)]
		d.off += int(n)
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("action: command payload is not valid UTF-8")
		}
		return TerminalCommand{Command: string(raw)}, nil
	case TagMouseDown:
		b, err := d.button()
		if err != nil {
			return nil, err
		}
		return MouseDown{Button: b}, nil
	case TagMouseUp:
		b, err := d.button()
		if err != nil {
			return nil, err
		}
		return MouseUp{Button: b}, nil
	default:
		return nil, fmt.Errorf("action: unknown tag 0x%02x at offset %d", tag, d.off-1)
	}
}

func (d *Decoder) u8(what string) (uint8, error) {
	if d.off >= len(d.buf) {
		return 0, fmt.Errorf("action: truncated frame: missing %s", what)
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

func (d *Decoder) button() (Button, error) {
	code, err := d.u8("button code")
	if err != nil {
		return 0, err
	}
	if Button(code) != ButtonLeft {
		return 0, fmt.Errorf("action: unsupported button code %d", code)
	}
	return Button(code), nil
}

// decodeKey tolerates key codes newer than this server by downgrading them
// to a no-op key.
func decodeKey(code uint8) Key {
	k := Key(code)
	if k > keyMax {
		slog.Warn("unknown key code, ignoring", "code", code)
		return KeyUnknown
	}
	return k
}

// Append appends the wire encoding of a to dst.
func Append(dst []byte, a Action) ([]byte, error) {
	if tc, ok := a.(TerminalCommand); ok {
		if len(tc.Command) > 0xFF {
			return dst, fmt.Errorf("action: command too long: %d bytes", len(tc.Command))
		}
	}
	dst = append(dst, a.Tag())
	return a.appendPayload(dst), nil
}

// Encode encodes a sequence of actions into one frame.
func Encode(actions ...Action) ([]byte, error) {
	var buf []byte
	var err error
	for _, a := range actions {
		if buf, err = Append(buf, a); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (a KeyPress) appendPayload(dst []byte) []byte {
	return append(dst, uint8(a.Key))
}

func (a Text) appendPayload(dst []byte) []byte {
	return append(dst, a.Ch)
}

func (a Scroll) appendPayload(dst []byte) []byte {
	return append(dst, uint8(a.Delta))
}

func (a MouseMove) appendPayload(dst []byte) []byte {
	return append(dst, uint8(a.DX), uint8(a.DY))
}

func (a MouseClick) appendPayload(dst []byte) []byte {
	return append(dst, uint8(a.Button))
}

func (Disconnect) appendPayload(dst []byte) []byte { return dst }

func (Shutdown) appendPayload(dst []byte) []byte { return dst }

func (a TerminalCommand) appendPayload(dst []byte) []byte {
	dst = append(dst, uint8(len(a.Command)))
	return append(dst, a.Command...)
}

func (a MouseDown) appendPayload(dst []byte) []byte {
	return append(dst, uint8(a.Button))
}

func (a MouseUp) appendPayload(dst []byte) []byte {
	return append(dst, uint8(a.Button))
}
