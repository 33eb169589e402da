package index

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ListFunc fetches the authoritative conversation listing, typically from
// the backend.
type ListFunc func(ctx context.Context) ([]Conversation, error)

// Refresher keeps the index current while a stream runs. Refresh only
// queues a request; a single worker goroutine applies and saves them.
type Refresher struct {
	idx     *Index
	logger  *slog.Logger
	list    ListFunc
	timeout time.Duration

	mu    sync.Mutex
	title string

	requests chan string
	done     chan struct{}
	once     sync.Once
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithList merges the result of fn into the index on every refresh.
func WithList(fn ListFunc) RefresherOption {
	return func(r *Refresher) { r.list = fn }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// NewRefresher starts the worker. Call Close to flush pending requests.
func NewRefresher(idx *Index, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		idx:      idx,
		timeout:  10 * time.Second,
		requests: make(chan string, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	go r.run()
	return r
}

// Title sets the user message used to name a new conversation.
func (r *Refresher) Title(message string) {
	r.mu.Lock()
	r.title = message
	r.mu.Unlock()
}

// Refresh queues a refresh of conversationID. It never blocks; when the
// queue is full the request is dropped since a queued one will save the
// same state.
func (r *Refresher) Refresh(conversationID string) {
	select {
	case r.requests <- conversationID:
	default:
		r.logger.Debug("refresh queue full", "conversation", conversationID)
	}
}

// Close stops accepting requests and waits for queued ones to finish.
// Refresh must not be called after Close.
func (r *Refresher) Close() {
	r.once.Do(func() { close(r.requests) })
	<-r.done
}

func (r *Refresher) run() {
	defer close(r.done)
	for id := range r.requests {
		r.apply(id)
	}
}

func (r *Refresher) apply(id string) {
	r.mu.Lock()
	title := r.title
	r.mu.Unlock()

	if id != "" {
		r.idx.Ensure(id, "")
		r.idx.SetTitle(id, title)
		r.idx.Touch(id)
	}

	if r.list != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		convs, err := r.list(ctx)
		cancel()
		if err != nil {
			r.logger.Warn("list conversations", "err", err)
		} else if n := r.idx.Merge(convs); n > 0 {
			r.logger.Debug("merged conversations", "added", n)
		}
	}

	if err := r.idx.Save(); err != nil {
		r.logger.Warn("save conversation index", "err", err)
	}
}
