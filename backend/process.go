package backend

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxLineBytes = 16 << 20

// closeGrace is how long Close waits for the process to exit on EOF
// before killing it.
var closeGrace = 2 * time.Second

type lineResult struct {
	line string
	err  error
}

// lineProcess is a long-lived child process speaking one request line,
// one response line. It is not safe for concurrent use; each worker owns
// its own. After a timeout or crash the process is killed and started
// again on the next request.
type lineProcess struct {
	argv   []string
	logger *zap.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan lineResult
	done  chan struct{}
}

func newLineProcess(argv []string, logger *zap.Logger) (*lineProcess, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("backend command is empty")
	}
	return &lineProcess{argv: argv, logger: logger}, nil
}

func (p *lineProcess) start() error {
	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %s", p.argv[0])
	}
	lines := make(chan lineResult)
	done := make(chan struct{})
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- lineResult{line: sc.Text()}:
			case <-done:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case lines <- lineResult{err: err}:
		case <-done:
		}
	}()
	p.cmd, p.stdin, p.lines, p.done = cmd, stdin, lines, done
	p.logger.Debug("backend process started", zap.Strings("argv", p.argv), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// roundTrip writes req plus a newline and waits for one response line.
func (p *lineProcess) roundTrip(ctx context.Context, req []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.cmd == nil {
		if err := p.start(); err != nil {
			return "", &faultError{cause: err}
		}
	}
	buf := make([]byte, 0, len(req)+1)
	buf = append(append(buf, req...), '\n')
	if _, err := p.stdin.Write(buf); err != nil {
		p.kill()
		return "", &faultError{cause: errors.Wrap(err, "write request")}
	}
	select {
	case r, ok := <-p.lines:
		if !ok || r.err != nil {
			p.kill()
			if !ok {
				r.err = io.EOF
			}
			return "", &faultError{cause: errors.Wrap(r.err, "backend process exited")}
		}
		return r.line, nil
	case <-ctx.Done():
		p.logger.Debug("backend request abandoned, killing process", zap.Error(ctx.Err()))
		p.kill()
		return "", errors.Wrap(ctx.Err(), "await backend")
	}
}

func (p *lineProcess) kill() {
	if p.cmd == nil {
		return
	}
	close(p.done)
	_ = p.stdin.Close()
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
	p.cmd = nil
}

// Close ends the process by closing its input and waiting for it. A
// process still running after closeGrace is killed.
func (p *lineProcess) Close() error {
	if p.cmd == nil {
		return nil
	}
	cmd := p.cmd
	p.cmd = nil
	close(p.done)
	_ = p.stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	timer := time.NewTimer(closeGrace)
	defer timer.Stop()

	var err error
	select {
	case err = <-exited:
	case <-timer.C:
		p.logger.Debug("backend process ignored EOF, killing it", zap.Int("pid", cmd.Process.Pid))
		_ = cmd.Process.Kill()
		<-exited
		err = errors.New("killed after close grace period")
	}
	if err != nil {
		return errors.Wrap(err, "backend process")
	}
	return nil
}
