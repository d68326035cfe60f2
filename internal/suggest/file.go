package suggest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/cmdweb/core"
	"pkt.systems/pslog"
)

const reloadQuiet = 50 * time.Millisecond

// FileVocabulary serves a vocabulary file and reloads it when it changes.
// The file holds one word per line; blank lines and lines starting with '#'
// are skipped.
type FileVocabulary struct {
	path    string
	static  *Static
	extra   []string
	watcher *fsnotify.Watcher
	reload  *core.Debouncer[struct{}]
	logger  pslog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// OpenFileVocabulary loads path and starts watching it. extra words are
// always included ahead of the file's words.
func OpenFileVocabulary(ctx context.Context, path string, extra []string, opts Options) (*FileVocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("vocabulary file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	words, err := readVocabulary(abs)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory; editors often replace the file by rename.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch vocabulary dir: %w", err)
	}
	logger := pslog.Ctx(ctx).With("vocabulary", abs)
	runCtx, cancel := context.WithCancel(context.Background())
	f := &FileVocabulary{
		path:    abs,
		extra:   append([]string(nil), extra...),
		watcher: watcher,
		logger:  logger,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	f.static = NewStatic(append(f.Extra(), words...), opts)
	f.reload = core.NewDebouncer(reloadQuiet, func(struct{}) { f.load() })
	go f.watch(runCtx)
	logger.Info("suggest vocabulary loaded", "words", len(words))
	return f, nil
}

// Lookup ranks the current vocabulary.
func (f *FileVocabulary) Lookup(ctx context.Context, prefix string) ([]string, error) {
	return f.static.Lookup(ctx, prefix)
}

// Words returns the current vocabulary.
func (f *FileVocabulary) Words() []string {
	return f.static.Words()
}

// Extra returns the words that are always present.
func (f *FileVocabulary) Extra() []string {
	return append([]string(nil), f.extra...)
}

// Close stops watching.
func (f *FileVocabulary) Close() error {
	var err error
	f.once.Do(func() {
		f.cancel()
		f.reload.Close()
		err = f.watcher.Close()
		<-f.done
	})
	return err
}

func (f *FileVocabulary) watch(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				f.reload.Call(struct{}{})
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("suggest vocabulary watch error", "err", err)
		}
	}
}

func (f *FileVocabulary) load() {
	words, err := readVocabulary(f.path)
	if err != nil {
		// Keep serving the previous vocabulary while the file is missing.
		f.logger.Warn("suggest vocabulary reload failed", "err", err)
		return
	}
	f.static.Replace(append(f.Extra(), words...))
	f.logger.Info("suggest vocabulary reloaded", "words", len(words))
}

func readVocabulary(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return words, nil
}
