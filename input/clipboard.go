package input

import (
	"fmt"
	"sync"

	"github.com/zyedidia/clipper"
)

// clipboard wraps the host clipboard. Initialization is lazy and a missing
// backend (headless host, no xclip/wl-copy) degrades to an error on use,
// consistent with the fail-soft keybinding policy.
type clipboard struct {
	once sync.Once
	clip clipper.Clipboard
	err  error
}

func newClipboard() *clipboard {
	return &clipboard{}
}

func (c *clipboard) init() {
	c.clip, c.err = clipper.GetClipboard(clipper.Clipboards...)
}

func (c *clipboard) write(text string) error {
	c.once.Do(c.init)
	if c.err != nil {
		return fmt.Errorf("input: no clipboard backend: %w", c.err)
	}
	return c.clip.WriteAll(clipper.RegClipboard, []byte(text))
}
