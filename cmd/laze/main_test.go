package main

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/PropzSaladaz/Laze/action"
)

func TestSendCmdActions(t *testing.T) {
	cmd := &SendCmd{Text: "hi", Key: "enter", Command: "firefox", Scroll: -3}
	acts, err := cmd.actions()
	assert.NilError(t, err)
	assert.DeepEqual(t, acts, []action.Action{
		action.Text{Ch: 'h'},
		action.Text{Ch: 'i'},
		action.KeyPress{Key: action.KeyEnter},
		action.TerminalCommand{Command: "firefox"},
		action.Scroll{Delta: -3},
	})
}

func TestSendCmdRejectsUnknownKey(t *testing.T) {
	cmd := &SendCmd{Key: "hyper-shift"}
	_, err := cmd.actions()
	assert.Assert(t, err != nil)
}

func TestSendCmdRejectsNonASCIIText(t *testing.T) {
	cmd := &SendCmd{Text: "héllo"}
	_, err := cmd.actions()
	assert.Assert(t, err != nil)
}

func TestSendCmdRejectsScrollOutOfRange(t *testing.T) {
	cmd := &SendCmd{Scroll: 400}
	_, err := cmd.actions()
	assert.Assert(t, err != nil)
}
