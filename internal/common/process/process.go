// File path: internal/common/process/process.go
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
)

// Options describes a helper process, such as a local model server, that the
// service supervises for its lifetime.
type Options struct {
	Name          string
	Command       string
	Args          []string
	Env           []string
	ReadyURL      string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	StopTimeout   time.Duration
}

// Supervised is a running helper process.
type Supervised struct {
	opts   Options
	cmd    *exec.Cmd
	logger *slog.Logger

	done    chan struct{}
	mu      sync.RWMutex
	waitErr error
}

// Start launches the process described by opts and blocks until its
// readiness URL answers or the process exits.
func Start(ctx context.Context, opts Options) (*Supervised, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, errors.New("process: command required")
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = filepath.Base(opts.Command)
	}
	opts.Name = name
	logger := common.Logger().With("component", "process", "service", name)
	logger.Info("process: launching service", "command", opts.Command, "args", strings.Join(opts.Args, " "))

	cmd := exec.Command(opts.Command, opts.Args...)
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stderr pipe %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", name, err)
	}

	svc := &Supervised{opts: opts, cmd: cmd, logger: logger, done: make(chan struct{})}
	var streams sync.WaitGroup
	streams.Add(2)
	go svc.forward(&streams, stdout, slog.LevelDebug, "stdout")
	go svc.forward(&streams, stderr, slog.LevelInfo, "stderr")
	go func() {
		streams.Wait()
		err := cmd.Wait()
		svc.mu.Lock()
		svc.waitErr = err
		svc.mu.Unlock()
		close(svc.done)
	}()

	if err := svc.waitReady(ctx); err != nil {
		_ = svc.Stop(context.Background())
		return nil, err
	}
	logger.Info("process: service ready", "url", opts.ReadyURL)
	return svc, nil
}

// forward copies one output stream of the child into the service log.
func (s *Supervised) forward(wg *sync.WaitGroup, pipe io.Reader, level slog.Level, stream string) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.logger.Log(context.Background(), level, scanner.Text(), "stream", stream)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Warn("process: log stream error", "stream", stream, "error", err)
	}
}

// Done is closed once the process has exited.
func (s *Supervised) Done() <-chan struct{} {
	return s.done
}

// Stop interrupts the process and kills it after the stop timeout.
func (s *Supervised) Stop(ctx context.Context) error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	s.logger.Info("process: stopping service")
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("process: interrupt failed", "error", err)
	}
	timeout := s.opts.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return s.exitErr()
	case <-timer.C:
		s.logger.Warn("process: forcing service kill")
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		<-s.done
		return s.exitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervised) waitReady(ctx context.Context) error {
	if strings.TrimSpace(s.opts.ReadyURL) == "" {
		return nil
	}
	timeout := s.opts.ReadyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := s.opts.ReadyInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-readyCtx.Done():
			if lastErr != nil {
				return fmt.Errorf("process: %s not ready after %s: %w", s.opts.Name, timeout, lastErr)
			}
			return fmt.Errorf("process: %s not ready after %s: %w", s.opts.Name, timeout, readyCtx.Err())
		case <-s.done:
			return fmt.Errorf("process: %s exited before reporting ready: %v", s.opts.Name, s.waitError())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(readyCtx, http.MethodGet, s.opts.ReadyURL, nil)
			if err != nil {
				return fmt.Errorf("process: readiness request for %s: %w", s.opts.Name, err)
			}
			resp, err := client.Do(req)
			if err != nil {
				lastErr = err
				continue
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode < http.StatusInternalServerError {
				return nil
			}
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}
}

func (s *Supervised) waitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waitErr
}

// exitErr drops the exit status caused by our own interrupt or kill.
func (s *Supervised) exitErr() error {
	err := s.waitError()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// BinaryPath resolves an executable using PATH.
func BinaryPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("process: binary name required")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("process: locate %s: %w", name, err)
	}
	return filepath.Clean(path), nil
}
