package manager

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Controller carries the backend start/stop signals the lifecycle issues.
// Start is called once per cold period; readiness is established by the
// health probe, not by Start returning. Both methods must be safe to call
// when the backend is already in the requested condition.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopController is for externally supervised backends: wake and stop are
// surfaced as log lines for whatever runs the backend (autoscaler, systemd,
// a container runtime) and the probe does the rest.
func NoopController() Controller { return noopController{} }

type noopController struct{}

func (noopController) Start(context.Context) error {
	log.Printf("controller event=wake_signal managed=false")
	return nil
}

func (noopController) Stop(context.Context) error {
	log.Printf("controller event=stop_signal managed=false")
	return nil
}

const stopEscalation = 2 * time.Second

// execController runs the backend as a child process from a configured
// command line. Tokens are whitespace-split; there is no shell quoting.
type execController struct {
	bin  string
	args []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{} // closed when the child exits
}

// NewExecController builds a Controller from a command line such as
// "llama-server -m /models/foo.gguf --port 8080".
func NewExecController(command string) (Controller, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("backend command is empty")
	}
	return &execController{bin: fields[0], args: fields[1:]}, nil
}

func (c *execController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runningLocked() {
		return nil
	}

	cmd := exec.Command(c.bin, c.args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	c.cmd, c.done = cmd, done
	log.Printf("controller event=start pid=%d bin=%s", cmd.Process.Pid, c.bin)
	return nil
}

// Stop terminates the child: SIGTERM first, SIGKILL if it lingers.
func (c *execController) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.runningLocked() {
		return nil
	}
	cmd, done := c.cmd, c.done

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(stopEscalation):
		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
	}
	c.cmd, c.done = nil, nil
	log.Printf("controller event=stop bin=%s", c.bin)
	return nil
}

func (c *execController) runningLocked() bool {
	if c.cmd == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}
