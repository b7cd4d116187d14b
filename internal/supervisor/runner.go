package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
)

// Command describes the service process to start.
type Command struct {
	Path string
	Args []string
	Env  []string
	// Out and Err default to os.Stdout and os.Stderr.
	Out io.Writer
	Err io.Writer
}

// Result is the terminal state of one supervised process.
type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Err     error
}

// Runner starts the service process in its own process group and owns
// its lifetime. At most one process is supervised per Runner. The kill
// targets the exact group spawned here, never a process-name pattern,
// and fires at most once regardless of how many failure paths race to
// it.
type Runner struct {
	mx       sync.RWMutex
	cmd      *exec.Cmd
	pgid     int
	killOnce sync.Once
	done     chan Result
}

func NewRunner() *Runner {
	return &Runner{
		done: make(chan Result, 1),
	}
}

// Start spawns the command. It does not wait for completion, the
// result is delivered on Done. The process intentionally outlives ctx:
// a successful startup leaves it running for the container's lifetime.
func (r *Runner) Start(ctx context.Context, proto Command) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(proto.Path, proto.Args...)
	cmd.Env = proto.Env
	cmd.Stdout = proto.Out
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = proto.Err
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	started := time.Now().UTC()
	if err := cmd.Start(); err != nil {
		return err
	}

	r.cmd = cmd
	r.pgid = cmd.Process.Pid

	go r.wait(cmd, proto, started)
	return nil
}

func (r *Runner) wait(cmd *exec.Cmd, proto Command, started time.Time) {
	err := cmd.Wait()
	stopped := time.Now().UTC()

	r.mx.Lock()
	defer r.mx.Unlock()
	r.done <- Result{
		Path:    proto.Path,
		Args:    proto.Args,
		Started: started,
		Stopped: stopped,
		State:   cmd.ProcessState,
		Err:     err,
	}
	close(r.done)
}

// Done delivers the single terminal Result of the supervised process.
func (r *Runner) Done() <-chan Result {
	return r.done
}

// Pid returns the process identifier, which doubles as the group id.
func (r *Runner) Pid() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.pgid
}

// Terminate forcefully kills the whole process group. Safe to call
// from multiple failure paths, only the first call signals.
func (r *Runner) Terminate() error {
	r.mx.RLock()
	pgid := r.pgid
	r.mx.RUnlock()
	if pgid == 0 {
		return ErrNotStarted
	}

	var err error
	r.killOnce.Do(func() {
		err = unix.Kill(-pgid, unix.SIGKILL)
	})
	return err
}
