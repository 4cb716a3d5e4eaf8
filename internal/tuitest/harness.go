package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 100
	defaultHeight  = 30
	defaultTimeout = 5 * time.Second
)

// Step is one scripted input. The harness first waits until the screen shows
// WaitFor (when set), then sleeps Delay, then writes Input.
type Step struct {
	WaitFor string
	Delay   time.Duration
	Input   []byte
}

// Config describes the program under test and the script to replay.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

func (c Config) withDefaults() (Config, error) {
	if len(c.Command) == 0 {
		return c, errors.New("tuitest: command is required")
	}
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c, nil
}

// exitAllowed reports whether err from cmd.Wait counts as a clean exit.
func (c Config) exitAllowed(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return true
		}
		for _, code := range c.AllowedExitCodes {
			if exitErr.ExitCode() == code {
				return true
			}
		}
	}
	return c.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt")
}

// Recording contains the raw terminal stream plus parsed frames.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// Run starts cfg.Command inside a pseudo terminal, replays the steps and
// records everything the program draws until it exits.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	s := newSession(ptmx)
	go s.pump(ptmx, ptmx)

	startedAt := time.Now()
	if err := s.replay(ctx, cfg.Steps); err != nil {
		return nil, err
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	select {
	case err := <-exited:
		if !cfg.exitAllowed(err) {
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}

	// Closing the PTY ends the pump once it has drained.
	_ = ptmx.Close()
	<-s.done

	raw := s.bytes()
	return &Recording{Raw: raw, Frames: parseFrames(raw), Duration: time.Since(startedAt)}, nil
}

// session collects program output and feeds it scripted input.
type session struct {
	in io.Writer

	mu     sync.Mutex
	output bytes.Buffer
	// changed is signalled, without blocking, after every chunk of output.
	changed chan struct{}
	done    chan struct{}
}

func newSession(in io.Writer) *session {
	return &session{
		in:      in,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// pump copies r into the output buffer until r fails. Terminal queries in
// the stream are answered on reply.
func (s *session) pump(r io.Reader, reply io.Writer) {
	defer close(s.done)
	responder := newTerminalResponder(reply)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			responder.Process(chunk)
			s.mu.Lock()
			_, _ = s.output.Write(chunk)
			s.mu.Unlock()
			select {
			case s.changed <- struct{}{}:
			default:
			}
		}
		if err != nil {
			// EIO on Linux once the child exits
			return
		}
	}
}

func (s *session) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.output.Bytes()...)
}

func (s *session) shows(text string) bool {
	return strings.Contains(stripANSI(string(s.bytes())), text)
}

// waitFor blocks until text has been drawn, the output ends or ctx expires.
func (s *session) waitFor(ctx context.Context, text string) error {
	for !s.shows(text) {
		select {
		case <-s.changed:
		case <-s.done:
			if s.shows(text) {
				return nil
			}
			return fmt.Errorf("tuitest: output ended before %q appeared", text)
		case <-ctx.Done():
			return fmt.Errorf("tuitest: waiting for %q: %w", text, ctx.Err())
		}
	}
	return nil
}

func (s *session) replay(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if step.WaitFor != "" {
			if err := s.waitFor(ctx, step.WaitFor); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tuitest: context cancelled before script finished: %w", ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if len(step.Input) > 0 {
			if _, err := s.in.Write(step.Input); err != nil {
				return fmt.Errorf("tuitest: write input: %w", err)
			}
		}
	}
	return nil
}

func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

// Keys spaces inputs delay apart, starting after one delay.
func Keys(delay time.Duration, inputs ...[]byte) []Step {
	steps := make([]Step, 0, len(inputs))
	for _, input := range inputs {
		steps = append(steps, Step{Delay: delay, Input: input})
	}
	return steps
}

// Text types s one rune per step.
func Text(delay time.Duration, s string) []Step {
	steps := make([]Step, 0, len(s))
	for _, r := range s {
		steps = append(steps, Step{Delay: delay, Input: []byte(string(r))})
	}
	return steps
}

// After returns a step that waits for text and then sends input.
func After(text string, input []byte) Step {
	return Step{WaitFor: text, Input: input}
}

var (
	KeyEnter = []byte{'\r'}
	KeyEsc   = []byte{27}
	KeyCtrlC = []byte{3}
	KeyDown  = []byte("j")
	KeyUp    = []byte("k")
	KeyTop   = []byte("g")
	KeySlash = []byte("/")
	KeyHelp  = []byte("?")
	KeyQuit  = []byte("q")
)
