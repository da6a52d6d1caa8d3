package command_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/x-research-team/dtx-runloop/bus/command"
)

// logBuffer — потокобезопасный буфер для перехвата JSON-логов.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// count возвращает число записей лога, содержащих подстроку.
func (b *logBuffer) count(substr string) int {
	return strings.Count(b.String(), substr)
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	lb := &logBuffer{}
	logger := slog.New(slog.NewJSONHandler(lb, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, lb
}

// recordingPusher запоминает поставленные команды, но не выполняет их.
type recordingPusher struct {
	mu   sync.Mutex
	cmds []command.Command
	err  error
}

func (p *recordingPusher) Push(ctx context.Context, cmd command.Command, urgent bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.cmds = append(p.cmds, cmd)
	return nil
}

func (p *recordingPusher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cmds)
}

// player — тестовый контекст диспетчеризации.
type player struct {
	name string
}

// object — тестовый объект, над которым выполняются блокирующие команды.
type object struct {
	name string
}
