package tessera

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FilesystemSource loads templates from files below a root directory.
// The template "mail/welcome" is read from <root>/mail/welcome.tsr.
//
// Watch starts an fsnotify watcher on the tree; rapid events for the same
// template are debounced into one notification.
type FilesystemSource struct {
	root     string
	ext      string
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timers  map[string]*time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	closed  bool
}

// FilesystemOption configures a FilesystemSource.
type FilesystemOption func(*FilesystemSource)

// WithFileExtension sets the template file extension.
func WithFileExtension(ext string) FilesystemOption {
	return func(s *FilesystemSource) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// WithWatchDebounce sets the quiet period before a change is reported.
func WithWatchDebounce(d time.Duration) FilesystemOption {
	return func(s *FilesystemSource) {
		s.debounce = d
	}
}

// WithSourceLogger sets the logger of the source.
func WithSourceLogger(logger *zap.Logger) FilesystemOption {
	return func(s *FilesystemSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFilesystemSource creates a source rooted at root, which must be an
// existing directory.
func NewFilesystemSource(root string, opts ...FilesystemOption) (*FilesystemSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, newSourceError(ErrMsgInvalidSourceRoot, root, err)
	}
	if !info.IsDir() {
		return nil, newSourceError(ErrMsgInvalidSourceRoot, root, nil)
	}

	s := &FilesystemSource{
		root:     root,
		ext:      TemplateFileExt,
		debounce: DefaultWatchDebounce,
		logger:   zap.NewNop(),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the root directory.
func (s *FilesystemSource) Root() string {
	return s.root
}

// Path returns the file path of the named template.
func (s *FilesystemSource) Path(name string) string {
	file := filepath.FromSlash(name)
	if filepath.Ext(file) != s.ext {
		file += s.ext
	}
	return filepath.Join(s.root, file)
}

// Load reads the named template file.
func (s *FilesystemSource) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateTemplateName(name); err != nil {
		return "", err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", newSourceError(ErrMsgSourceClosed, name, nil)
	}

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewTemplateNotFoundError(name)
		}
		return "", newSourceError(ErrMsgSourceUnavailable, name, err)
	}
	return string(data), nil
}

// Watch starts watching the root tree and calls onChange with the name of
// every template written, created, removed or renamed. A source can be
// watched once.
func (s *FilesystemSource) Watch(onChange func(name string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newSourceError(ErrMsgSourceClosed, s.root, nil)
	}
	if s.watcher != nil {
		return newSourceError(ErrMsgWatcherRunning, s.root, nil)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return newSourceError(ErrMsgWatchFailed, s.root, err)
	}
	if err := s.addTree(watcher, s.root); err != nil {
		_ = watcher.Close()
		return newSourceError(ErrMsgWatchFailed, s.root, err)
	}

	s.watcher = watcher
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(watcher, onChange)
	return nil
}

// addTree watches dir and all its non-hidden subdirectories.
func (s *FilesystemSource) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

// loop processes watcher events until Close.
func (s *FilesystemSource) loop(watcher *fsnotify.Watcher, onChange func(name string)) {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			s.logger.Debug(LogMsgSourceWatchStopped, zap.String(LogFieldPath, s.root))
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.addTree(watcher, event.Name); err != nil {
						s.logger.Warn(LogMsgSourceWatchError, zap.String(LogFieldPath, event.Name), zap.Error(err))
					}
					continue
				}
			}
			name, ok := s.templateName(event)
			if !ok {
				continue
			}
			s.logger.Debug(LogMsgSourceChanged,
				zap.String(LogFieldTemplate, name),
				zap.String(LogFieldOp, event.Op.String()))
			s.trigger(name, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn(LogMsgSourceWatchError, zap.String(LogFieldPath, s.root), zap.Error(err))
		}
	}
}

// templateName maps an event to a template name; chmod-only events and
// foreign files are ignored.
func (s *FilesystemSource) templateName(event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	if filepath.Ext(event.Name) != s.ext || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return "", false
	}
	rel, err := filepath.Rel(s.root, event.Name)
	if err != nil {
		return "", false
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), s.ext), true
}

// trigger debounces notifications per template name.
func (s *FilesystemSource) trigger(name string, onChange func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
	}
	s.timers[name] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, name)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			onChange(name)
		}
	})
}

// Close stops the watcher, if any. Subsequent calls are no-ops.
func (s *FilesystemSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watcher := s.watcher
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(s.stopCh)
	<-s.doneCh
	return watcher.Close()
}
