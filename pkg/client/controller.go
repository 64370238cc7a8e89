package client

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultGrace is how long a deleted task stays undoable before the server
// delete is sent.
const DefaultGrace = 6 * time.Second

var (
	// ErrBusy is returned while another mutation of the same task (or another
	// create) is still in flight.
	ErrBusy = errors.New("client: mutation already in flight")

	// ErrDeletePending is returned for a task that is waiting out its grace window.
	ErrDeletePending = errors.New("client: delete already pending")

	// ErrNotCached is returned when the task is not on the loaded page.
	ErrNotCached = errors.New("client: task not in a loaded page")
)

// API is the part of Client the controller drives.
type API interface {
	SetToken(string)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ListTasks(ctx context.Context, q Query) (*TaskPage, error)
	CreateTask(ctx context.Context, in NewTask) (*Task, error)
	UpdateTask(ctx context.Context, id string, p Patch) (*Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type Timer interface{ Stop() bool }

// Scheduler runs f once after d unless the returned timer is stopped first.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type EventKind int

const (
	EventCreated EventKind = iota + 1
	EventCreateFailed
	EventUpdated
	EventUpdateFailed
	EventDeletePending
	EventDeleteUndone
	EventDeleted
	EventDeleteFailed
	EventRefreshFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventCreateFailed:
		return "create failed"
	case EventUpdated:
		return "updated"
	case EventUpdateFailed:
		return "update failed"
	case EventDeletePending:
		return "delete pending"
	case EventDeleteUndone:
		return "delete undone"
	case EventDeleted:
		return "deleted"
	case EventDeleteFailed:
		return "delete failed"
	case EventRefreshFailed:
		return "refresh failed"
	}
	return "unknown"
}

type Event struct {
	Kind   EventKind
	TaskID string
	Err    error
}

// Message is the server's message for API failures, else the error text.
func (e Event) Message() string {
	var ae *APIError
	if errors.As(e.Err, &ae) {
		return ae.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Notifier receives outcome events, typically to show a toast. It is called
// without the controller lock held.
type Notifier interface{ Notify(Event) }

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type Options struct {
	Grace          time.Duration // default DefaultGrace
	RequestTimeout time.Duration // for deletes fired by the timer; default 15s
	Scheduler      Scheduler
	Notifier       Notifier
	Store          SessionStore
	Logger         *zap.Logger
}

type deleteState int

const (
	deleteScheduled deleteState = iota
	deleteFiring
	deleteDone
)

// PendingDelete is a delete waiting out its grace window.
type PendingDelete struct {
	TaskID string
	Query  Query
	task   Task

	c     *Controller
	timer Timer
	state deleteState
}

// Cancel undoes the delete if the window is still open. It reports whether
// this call restored the task; repeated calls return false.
func (p *PendingDelete) Cancel() bool { return p.c.cancel(p) }

// Controller keeps the session and an optimistic view of task pages. All
// methods are safe for concurrent use.
type Controller struct {
	api   API
	opt   Options
	cache *TaskCache
	log   *zap.Logger

	mu       sync.Mutex
	session  *Session
	creating bool
	inflight map[string]struct{}
	pending  map[string]*PendingDelete
	order    map[Query][]string // task ids as last returned by the server
}

func NewController(api API, opt Options) *Controller {
	if opt.Grace <= 0 {
		opt.Grace = DefaultGrace
	}
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 15 * time.Second
	}
	if opt.Scheduler == nil {
		opt.Scheduler = realScheduler{}
	}
	if opt.Store == nil {
		opt.Store = &MemoryStore{}
	}
	l := opt.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Controller{
		api:      api,
		opt:      opt,
		cache:    NewTaskCache(),
		log:      l,
		inflight: make(map[string]struct{}),
		pending:  make(map[string]*PendingDelete),
		order:    make(map[Query][]string),
	}
}

func (c *Controller) Cache() *TaskCache { return c.cache }

func (c *Controller) notify(e Event) {
	if c.opt.Notifier != nil {
		c.opt.Notifier.Notify(e)
	}
}

// Restore picks up a stored session, if any.
func (c *Controller) Restore() (*Session, error) {
	s, err := c.opt.Store.Load()
	if err != nil || s == nil {
		return nil, err
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.api.SetToken(s.Token)
	return s, nil
}

func (c *Controller) Session() (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, false
	}
	s := *c.session
	return &s, true
}

func (c *Controller) Login(ctx context.Context, email, password string) (*Session, error) {
	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s := Session{Token: res.Token, User: res.User}
	if err := c.opt.Store.Save(s); err != nil {
		c.log.Warn("persist session failed", zap.Error(err))
	}
	c.api.SetToken(s.Token)
	c.mu.Lock()
	c.session = &s
	clear(c.order)
	c.mu.Unlock()
	c.cache.InvalidateExcept()
	return &s, nil
}

// Logout forgets the session. Deletes still inside their grace window are
// dropped without reaching the server.
func (c *Controller) Logout() error {
	c.mu.Lock()
	for id, p := range c.pending {
		if p.state == deleteScheduled {
			p.timer.Stop()
			p.state = deleteDone
			delete(c.pending, id)
		}
	}
	c.session = nil
	clear(c.order)
	c.mu.Unlock()

	c.api.SetToken("")
	c.cache.InvalidateExcept()
	return c.opt.Store.Clear()
}

// Load fetches a page and caches it under q. Tasks with a delete still
// pending stay hidden.
func (c *Controller) Load(ctx context.Context, q Query) (TaskPage, error) {
	p, err := c.api.ListTasks(ctx, q)
	if err != nil {
		return TaskPage{}, err
	}
	page := *p
	c.mu.Lock()
	ids := make([]string, 0, len(page.Data))
	for _, t := range page.Data {
		ids = append(ids, t.ID)
	}
	c.order[q] = ids
	for id := range c.pending {
		page = RemoveTask(page, id)
	}
	c.cache.Set(q, page)
	c.mu.Unlock()
	return page, nil
}

func indexOf(page TaskPage, id string) int {
	return slices.IndexFunc(page.Data, func(t Task) bool { return t.ID == id })
}

// restoreLocked puts t back into the cached page q where the server last
// listed it. Caller holds c.mu.
func (c *Controller) restoreLocked(q Query, t Task) {
	cur, ok := c.cache.Get(q)
	if !ok {
		return
	}
	rank := make(map[string]int, len(c.order[q]))
	for i, id := range c.order[q] {
		rank[id] = i
	}
	at := len(cur.Data)
	if r, ok := rank[t.ID]; ok {
		for i, x := range cur.Data {
			if xr, known := rank[x.ID]; known && xr > r {
				at = i
				break
			}
		}
	}
	c.cache.Set(q, InsertTask(cur, t, at))
}

// Page returns the cached view of q.
func (c *Controller) Page(q Query) (TaskPage, bool) { return c.cache.Get(q) }

// Create is not optimistic: on success every cached page is dropped so the
// next Load sees the new task in its server-assigned place.
func (c *Controller) Create(ctx context.Context, in NewTask) (*Task, error) {
	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.creating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	t, err := c.api.CreateTask(ctx, in)
	if err != nil {
		c.notify(Event{Kind: EventCreateFailed, Err: err})
		return nil, err
	}
	c.cache.InvalidateExcept()
	c.notify(Event{Kind: EventCreated, TaskID: t.ID})
	return t, nil
}

// acquire marks id busy. Caller holds c.mu.
func (c *Controller) acquire(id string) error {
	if _, ok := c.pending[id]; ok {
		return ErrDeletePending
	}
	if _, ok := c.inflight[id]; ok {
		return ErrBusy
	}
	c.inflight[id] = struct{}{}
	return nil
}

func (c *Controller) release(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// Update applies p to the cached page q at once, then sends it. On failure
// only that task is put back as it was; the rest of the page may have moved
// on in the meantime.
func (c *Controller) Update(ctx context.Context, q Query, id string, p Patch) (*Task, error) {
	c.mu.Lock()
	if err := c.acquire(id); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	var prev Task
	page, cached := c.cache.Get(q)
	if cached {
		if i := indexOf(page, id); i >= 0 {
			prev = page.Data[i]
			c.cache.Set(q, PatchTask(page, id, p))
		} else {
			cached = false
		}
	}
	c.mu.Unlock()
	defer c.release(id)

	t, err := c.api.UpdateTask(ctx, id, p)
	if err != nil {
		if cached {
			c.mu.Lock()
			if cur, ok := c.cache.Get(q); ok {
				c.cache.Set(q, ReplaceTask(cur, prev))
			}
			c.mu.Unlock()
		}
		c.notify(Event{Kind: EventUpdateFailed, TaskID: id, Err: err})
		return nil, err
	}

	// 以服务端结果为准；其他页可能因筛选条件变化而过期
	c.mu.Lock()
	if cur, ok := c.cache.Get(q); ok {
		c.cache.Set(q, ReplaceTask(cur, *t))
	}
	c.cache.InvalidateExcept(q)
	c.mu.Unlock()
	c.notify(Event{Kind: EventUpdated, TaskID: id})
	return t, nil
}

// Delete hides id from page q now and sends the delete after the grace
// window. Cancel the returned handle (or call Undo) to keep the task.
func (c *Controller) Delete(q Query, id string) (*PendingDelete, error) {
	c.mu.Lock()
	if _, ok := c.pending[id]; ok {
		c.mu.Unlock()
		return nil, ErrDeletePending
	}
	if _, ok := c.inflight[id]; ok {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	page, ok := c.cache.Get(q)
	i := indexOf(page, id)
	if !ok || i < 0 {
		c.mu.Unlock()
		return nil, ErrNotCached
	}

	p := &PendingDelete{TaskID: id, Query: q, task: page.Data[i], c: c}
	c.cache.Set(q, RemoveTask(page, id))
	c.pending[id] = p
	p.timer = c.opt.Scheduler.AfterFunc(c.opt.Grace, func() { c.fire(p) })
	c.mu.Unlock()

	c.notify(Event{Kind: EventDeletePending, TaskID: id})
	return p, nil
}

// Undo cancels the pending delete of id. It reports whether anything was
// restored.
func (c *Controller) Undo(id string) bool {
	c.mu.Lock()
	p := c.pending[id]
	c.mu.Unlock()
	if p == nil {
		return false
	}
	return c.cancel(p)
}

func (c *Controller) cancel(p *PendingDelete) bool {
	c.mu.Lock()
	if p.state != deleteScheduled {
		c.mu.Unlock()
		return false
	}
	p.timer.Stop()
	p.state = deleteDone
	delete(c.pending, p.TaskID)
	c.restoreLocked(p.Query, p.task)
	c.mu.Unlock()

	c.notify(Event{Kind: EventDeleteUndone, TaskID: p.TaskID})
	return true
}

func (c *Controller) fire(p *PendingDelete) {
	c.mu.Lock()
	if p.state != deleteScheduled {
		c.mu.Unlock()
		return
	}
	p.state = deleteFiring
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.opt.RequestTimeout)
	defer cancel()
	err := c.api.DeleteTask(ctx, p.TaskID)

	c.mu.Lock()
	p.state = deleteDone
	delete(c.pending, p.TaskID)
	if err != nil {
		c.restoreLocked(p.Query, p.task)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("delayed delete failed", zap.String("task", p.TaskID), zap.Error(err))
		c.notify(Event{Kind: EventDeleteFailed, TaskID: p.TaskID, Err: err})
		return
	}
	c.notify(Event{Kind: EventDeleted, TaskID: p.TaskID})

	c.cache.InvalidateExcept(p.Query)
	if _, err := c.Load(ctx, p.Query); err != nil {
		c.log.Warn("refresh after delete failed", zap.Error(err))
		c.notify(Event{Kind: EventRefreshFailed, TaskID: p.TaskID, Err: err})
	}
}

// Pending reports whether id is waiting out its grace window.
func (c *Controller) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	return ok && p.state == deleteScheduled
}
