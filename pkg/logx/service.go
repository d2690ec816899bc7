package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	kit "lifepath/internal/transport"
)

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// TelegramConfig controls forwarding of records to the log chat.
type TelegramConfig struct {
	Enabled    bool
	ThreadID   int
	MinLevel   string
	RatePerSec int
}

const defaultLogFile = "./lifepath.log"

// Service owns the live sinks. Loggers from Logger() pick up every Apply.
type Service struct {
	r   *root
	fwd *forwarder

	mu   sync.Mutex
	file *os.File
	path string
}

// New builds the service from cfg. sender carries Telegram log records and
// may be nil when that sink stays off.
func New(cfg Config, sender kit.Sender) (*Service, Logger) {
	s := &Service{
		r:   newRoot(build(consoleWriter(os.Stdout), cfg.Level)),
		fwd: newForwarder(sender),
	}
	s.Apply(cfg)
	return s, s.Logger()
}

func (s *Service) Logger() Logger { return Logger{r: s.r} }

// SetTelegramTarget points forwarded records at chatID (0 turns forwarding off).
// A zero threadID keeps the configured topic.
func (s *Service) SetTelegramTarget(chatID int64, threadID int) {
	s.fwd.setTarget(chatID, threadID)
}

// Apply rebuilds the sink set from cfg. The log file is reopened only when its path changes.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}
	if w := s.fileSinkLocked(cfg.File); w != nil {
		sinks = append(sinks, w)
	}
	s.fwd.configure(cfg.Telegram)
	if cfg.Telegram.Enabled && s.fwd.usable() {
		s.fwd.ensureRunning()
		sinks = append(sinks, s.fwd)
		if !s.fwd.hasTarget() {
			fmt.Fprintln(os.Stderr, "logx: telegram logging enabled without a log chat; records are dropped")
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}
	s.r.swap(build(zerolog.MultiLevelWriter(sinks...), cfg.Level))
}

func (s *Service) fileSinkLocked(fc FileConfig) io.Writer {
	if !fc.Enabled {
		s.closeFileLocked()
		return nil
	}
	path := strings.TrimSpace(fc.Path)
	if path == "" {
		path = defaultLogFile
	}
	if s.file != nil && s.path == path {
		return zerolog.SyncWriter(s.file)
	}
	s.closeFileLocked()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logx: open %s: %v\n", path, err)
		return nil
	}
	s.file, s.path = f, path
	return zerolog.SyncWriter(f)
}

func (s *Service) closeFileLocked() {
	if s.file != nil {
		_ = s.file.Close()
		s.file, s.path = nil, ""
	}
}

// Close stops Telegram forwarding and closes the log file.
func (s *Service) Close() error {
	s.fwd.close()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFileLocked()
	return nil
}
