//go:build windows

package input

import (
	"log/slog"
	"os/exec"
)

// spawnCommand runs a client-issued shell command fire-and-forget. The
// child is reaped in the background; its outcome never reaches the client.
func spawnCommand(command string) error {
	cmd := exec.Command("cmd", "/C", command)
	if err := cmd.Start(); err != nil {
		return err
	}
	slog.Info("spawned terminal command", "command", command, "pid", cmd.Process.Pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("terminal command exited", "command", command, "err", err)
		}
	}()
	return nil
}

// spawnShutdown powers the host machine off.
func spawnShutdown() error {
	cmd := exec.Command("shutdown", "/s", "/f", "/t", "0")
	if err := cmd.Start(); err != nil {
		return err
	}
	slog.Info("spawned host shutdown", "pid", cmd.Process.Pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("shutdown command exited", "err", err)
		}
	}()
	return nil
}
