// Package writequeue provides a per-note write queue
// Package writequeue 提供按笔记路径串行化的写队列
// Every mutation of one note (text rewrite, backup folder, shadow note) runs through the same FIFO
// 同一笔记的所有修改（正文改写、备份目录、影子笔记）都经过同一个 FIFO 队列
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull the note queue is full
	// ErrWriteQueueFull 笔记队列已满
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed the manager is shut down
	// ErrWriteQueueClosed 管理器已关闭
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout the operation did not finish in time
	// ErrWriteTimeout 写操作超时
	ErrWriteTimeout = errors.New("write operation timeout")

	// errQueueRetired 队列已被回收，调用方需要重新获取
	errQueueRetired = errors.New("write queue retired")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity per-note queue capacity, default 64
	// QueueCapacity 每个笔记的队列容量，默认 64
	QueueCapacity int
	// WriteTimeout default 60 seconds
	// WriteTimeout 写操作超时时间，默认 60 秒
	WriteTimeout time.Duration
	// IdleTimeout idle queues are dropped after this, default 5 minutes
	// IdleTimeout 空闲队列回收时间，默认 5 分钟
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 64,
		WriteTimeout:  60 * time.Second,
		IdleTimeout:   5 * time.Minute,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// noteQueue single note queue
// noteQueue 单笔记写队列
type noteQueue struct {
	key      string
	ch       chan writeOp
	lastUsed atomic.Int64
	closed   atomic.Bool
	workerWg sync.WaitGroup
	stopCh   chan struct{}

	// sendMu 入队与关闭互斥，关闭之后不会再有操作进入 ch
	sendMu sync.Mutex
}

func (q *noteQueue) send(op writeOp) error {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if q.closed.Load() {
		return errQueueRetired
	}
	select {
	case q.ch <- op:
		return nil
	default:
		return ErrWriteQueueFull
	}
}

// retire closes the queue when cond holds; it reports whether this call closed it
// retire 在 cond 成立时关闭队列，返回是否由本次调用关闭
func (q *noteQueue) retire(cond func() bool) bool {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if !cond() || !q.closed.CompareAndSwap(false, true) {
		return false
	}
	close(q.stopCh)
	return true
}

// Manager serializes writes per key
// Manager 按 key 串行化写操作
type Manager struct {
	config Config
	logger *zap.Logger

	queues sync.Map // map[string]*noteQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	cleanupWg   sync.WaitGroup
	cleanupDone chan struct{}
}

// New creates a write queue manager, nil cfg or logger use defaults
// New 创建写队列管理器，cfg 或 logger 为 nil 时使用默认值
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:      c,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	m.cleanupWg.Add(1)
	go m.cleanupIdleQueues()

	m.logger.Debug("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout),
		zap.Duration("idleTimeout", c.IdleTimeout))

	return m
}

// Execute runs fn after every earlier operation submitted for key has finished
// Execute 在该 key 之前提交的操作全部完成后执行 fn
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	if m.IsClosed() {
		return ErrWriteQueueClosed
	}

	result := make(chan error, 1)
	op := writeOp{ctx: ctx, fn: fn, result: result}
	for {
		queue := m.getOrCreateQueue(key)
		if queue == nil {
			return ErrWriteQueueClosed
		}
		err := queue.send(op)
		if err == nil {
			break
		}
		if err != errQueueRetired {
			return err
		}
		// 回收与入队交错，换一个新队列重试
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	case <-m.ctx.Done():
		return ErrWriteQueueClosed
	}
}

func (m *Manager) getOrCreateQueue(key string) *noteQueue {
	if v, ok := m.queues.Load(key); ok {
		queue := v.(*noteQueue)
		if !queue.closed.Load() {
			queue.lastUsed.Store(time.Now().UnixNano())
			return queue
		}
	}

	if m.IsClosed() {
		return nil
	}

	queue := &noteQueue{
		key:    key,
		ch:     make(chan writeOp, m.config.QueueCapacity),
		stopCh: make(chan struct{}),
	}
	queue.lastUsed.Store(time.Now().UnixNano())

	actual, loaded := m.queues.LoadOrStore(key, queue)
	if loaded {
		existing := actual.(*noteQueue)
		if !existing.closed.Load() {
			existing.lastUsed.Store(time.Now().UnixNano())
			return existing
		}
		m.queues.Store(key, queue)
	}

	queue.workerWg.Add(1)
	go m.worker(queue)

	m.logger.Debug("created write queue", zap.String("key", key))
	return queue
}

func (m *Manager) worker(queue *noteQueue) {
	defer queue.workerWg.Done()
	defer queue.closed.Store(true)

	for {
		select {
		case <-m.ctx.Done():
			m.drainQueue(queue)
			return
		case <-queue.stopCh:
			m.drainQueue(queue)
			return
		case op := <-queue.ch:
			m.executeOp(queue, op)
		}
	}
}

func (m *Manager) executeOp(queue *noteQueue, op writeOp) {
	queue.lastUsed.Store(time.Now().UnixNano())

	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}

	op.result <- op.fn()
}

func (m *Manager) drainQueue(queue *noteQueue) {
	for {
		select {
		case op := <-queue.ch:
			m.executeOp(queue, op)
		default:
			return
		}
	}
}

func (m *Manager) cleanupIdleQueues() {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.cleanupDone:
			return
		case <-ticker.C:
			m.doCleanup()
		}
	}
}

func (m *Manager) doCleanup() {
	now := time.Now().UnixNano()
	idle := m.config.IdleTimeout.Nanoseconds()

	m.queues.Range(func(k, v any) bool {
		queue := v.(*noteQueue)
		retired := queue.retire(func() bool {
			return now-queue.lastUsed.Load() > idle && len(queue.ch) == 0
		})
		if retired {
			m.queues.CompareAndDelete(k, queue)
			m.logger.Debug("dropped idle write queue", zap.String("key", queue.key))
		}
		return true
	})
}

// Shutdown stops accepting work and waits for queued operations
// Shutdown 停止接收新操作并等待已排队的操作完成
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.cleanupDone)

	done := make(chan struct{})
	go func() {
		m.queues.Range(func(_, v any) bool {
			v.(*noteQueue).retire(func() bool { return true })
			return true
		})
		m.queues.Range(func(_, v any) bool {
			v.(*noteQueue).workerWg.Wait()
			return true
		})
		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		m.logger.Debug("write queue manager shutdown completed")
		return nil
	case <-ctx.Done():
		m.cancel()
		m.logger.Warn("write queue manager shutdown timeout")
		return ctx.Err()
	}
}

// QueueCount active queue count
// QueueCount 活跃队列数量
func (m *Manager) QueueCount() int {
	count := 0
	m.queues.Range(func(_, v any) bool {
		if !v.(*noteQueue).closed.Load() {
			count++
		}
		return true
	})
	return count
}

// IsClosed reports whether Shutdown was called
// IsClosed 是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
