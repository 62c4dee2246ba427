package vault

import (
	"context"
	"strings"
	"time"

	"github.com/radovskyb/watcher"
	"go.uber.org/zap"
)

// Watcher reports modified notes of a LocalVault
// Watcher 监听 LocalVault 中被修改的笔记
type Watcher struct {
	vault    *LocalVault
	interval time.Duration
	logger   *zap.Logger
	w        *watcher.Watcher
}

// NewWatcher polls the vault every interval
// NewWatcher 每个 interval 轮询一次 vault
func NewWatcher(v *LocalVault, interval time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{vault: v, interval: interval, logger: logger}
}

// Run blocks until ctx is done, calling onModify with the vault path of every written Markdown note
// Run 阻塞直到 ctx 结束，每当 Markdown 笔记被写入时以 vault 路径调用 onModify
func (w *Watcher) Run(ctx context.Context, onModify func(notePath string)) error {
	w.w = watcher.New()
	w.w.IgnoreHiddenFiles(true)
	w.w.FilterOps(watcher.Write, watcher.Create)

	if err := w.w.AddRecursive(w.vault.Root()); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event := <-w.w.Event:
				if event.IsDir() || !strings.EqualFold(pathExt(event.Path), ".md") {
					continue
				}
				rel, ok := w.vault.Rel(event.Path)
				if !ok {
					continue
				}
				w.dispatch(onModify, rel)
			case err := <-w.w.Error:
				w.logger.Warn("vault watcher error", zap.Error(err))
			case <-w.w.Closed:
				return
			case <-ctx.Done():
				w.w.Close()
				return
			}
		}
	}()

	w.logger.Info("vault watcher started", zap.String("vault", w.vault.Root()), zap.Duration("interval", w.interval))
	return w.w.Start(w.interval)
}

func (w *Watcher) dispatch(onModify func(string), notePath string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("vault watcher callback panic", zap.Any("panic", r), zap.String("note", notePath))
		}
	}()
	onModify(notePath)
}

func pathExt(p string) string {
	i := strings.LastIndexByte(p, '.')
	if i < 0 || strings.ContainsAny(p[i:], `/\`) {
		return ""
	}
	return p[i:]
}
