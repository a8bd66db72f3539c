package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"roomscribe/internal/ports"
)

type container struct {
	codecArgs   []string
	contentType string
}

var containers = map[string]container{
	"webm": {codecArgs: []string{"-c:a", "libopus", "-f", "webm"}, contentType: "audio/webm"},
	"ogg":  {codecArgs: []string{"-c:a", "libopus", "-f", "ogg"}, contentType: "audio/ogg"},
	"wav":  {codecArgs: []string{"-c:a", "pcm_s16le", "-f", "wav"}, contentType: "audio/wav"},
}

// FFMPEGRecorder records the microphone into an encoded clip using ffmpeg.
type FFMPEGRecorder struct {
	command    string
	startGrace time.Duration
	stopGrace  time.Duration
}

func NewFFMPEGRecorder(command string) *FFMPEGRecorder {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGRecorder{
		command:    command,
		startGrace: 250 * time.Millisecond,
		stopGrace:  1500 * time.Millisecond,
	}
}

// ContentTypeFor maps a container name to its MIME type. Unknown names map
// to audio/webm.
func ContentTypeFor(name string) string {
	if c, ok := containers[strings.ToLower(name)]; ok {
		return c.contentType
	}
	return containers["webm"].contentType
}

func buildArgs(cfg ports.AudioConfig) ([]string, container) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	out, ok := containers[strings.ToLower(cfg.Container)]
	if !ok {
		out = containers["webm"]
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
	}
	args = append(args, out.codecArgs...)
	return append(args, "-"), out
}

func (r *FFMPEGRecorder) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	args, out := buildArgs(cfg)

	// The read end stays ours so Wait cannot close it before the clip is drained.
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.command, args...)
	var stderr bytes.Buffer
	cmd.Stdout = writer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	_ = writer.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = reader.Close()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(r.startGrace):
	}

	return &recording{
		stdout:      reader,
		stderr:      &stderr,
		process:     cmd.Process,
		waitErr:     waitErr,
		stopGrace:   r.stopGrace,
		contentType: out.contentType,
	}, nil
}

type recording struct {
	stdout *os.File
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopGrace   time.Duration
	contentType string

	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
}

func (s *recording) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *recording) ContentType() string {
	return s.contentType
}

// Close stops the recorder and releases the read end.
func (s *recording) Close() error {
	err := s.Stop()
	s.closeOnce.Do(func() {
		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = closeErr
		}
	})
	return err
}

// Stop asks ffmpeg to finish the container and waits for it to exit. Any
// trailing bytes stay readable until EOF.
func (s *recording) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(s.stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// normalizeStopErr drops exit statuses; ffmpeg exits non-zero on SIGINT.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
