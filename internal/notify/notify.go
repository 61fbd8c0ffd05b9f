// Package notify announces attendance events through a text-to-speech command.
package notify

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// speakTimeout bounds one spoken phrase.
const speakTimeout = 15 * time.Second

// Speaker runs an external command (espeak by default) with the phrase as its
// last argument. Every Notify starts its own goroutine and never blocks.
type Speaker struct {
	command string
	args    []string
	logger  *slog.Logger
	wg      sync.WaitGroup

	// run executes the command; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewSpeaker parses command as a program followed by fixed arguments,
// e.g. "espeak -s 150".
func NewSpeaker(command string) *Speaker {
	fields := strings.Fields(command)
	s := &Speaker{
		logger: slog.Default().With("component", "notify"),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
		},
	}
	if len(fields) > 0 {
		s.command = fields[0]
		s.args = fields[1:]
	}
	return s
}

func (s *Speaker) Notify(text string) {
	if s.command == "" || text == "" {
		return
	}
	args := append(append([]string(nil), s.args...), text)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
		defer cancel()
		if output, err := s.run(ctx, s.command, args...); err != nil {
			s.logger.Error("notify: speech failed", "command", s.command, "error", err, "output", strings.TrimSpace(string(output)))
		}
	}()
}

// Wait blocks until every pending phrase has finished.
func (s *Speaker) Wait() {
	s.wg.Wait()
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string) {}
