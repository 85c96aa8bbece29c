// Package supervisor starts an external command at most once at a time,
// mirroring the single-flight "is a backend already starting" check the
// proxy needs before it attempts to launch one.
package supervisor

import (
	"os/exec"
	"sync"

	"github.com/seiftnesse/mc-lazyproxy/internal/logger"
)

// Supervisor spawns command on demand and refuses to spawn a second copy
// while one is still running.
type Supervisor struct {
	command string
	log     *logger.Logger

	mu      sync.Mutex
	done    chan struct{} // non-nil and open while a child is running
	process *exec.Cmd     // set while a child is running
}

// New returns a Supervisor for command. command is passed to exec.Command
// as-is: it is not run through a shell, so it takes no arguments.
func New(command string, log *logger.Logger) *Supervisor {
	return &Supervisor{command: command, log: log}
}

// SpawnOnce starts the command if no previously spawned instance is still
// running, and reports whether it started a new one. A spawn failure
// (e.g. the command does not exist) is returned as an error; the
// supervisor remains free to try again on the next call.
func (s *Supervisor) SpawnOnce() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
			s.log.Debug("previous child process for %q finished", s.command)
			s.done = nil
		default:
			s.log.Debug("previous child process for %q is still running", s.command)
			return false, nil
		}
	}

	cmd := exec.Command(s.command)
	if err := cmd.Start(); err != nil {
		return false, err
	}
	s.log.Debug("spawned %q, pid %d", s.command, cmd.Process.Pid)

	done := make(chan struct{})
	s.done = done
	s.process = cmd
	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil {
			s.log.Debug("%q exited: %v", s.command, err)
		} else {
			s.log.Debug("%q exited cleanly", s.command)
		}
	}()

	return true, nil
}

// Close kills any currently running child process. It does not wait for
// the process to exit.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	default:
	}
	return s.process.Process.Kill()
}
