package depth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	DepthAnything = "depth-anything"
	MiDaS         = "midas"
	Marigold      = "marigold"
)

// Slot 一个模型槽位：要么持有 Handle，要么记录加载失败的原因
type Slot struct {
	name   string
	handle *Handle
	err    error

	requests atomic.Int64
	failures atomic.Int64
}

func Available(name string, h *Handle) *Slot {
	return &Slot{name: name, handle: h}
}

func Unavailable(name string, err error) *Slot {
	return &Slot{name: name, err: err}
}

func (s *Slot) Name() string {
	return s.name
}

func (s *Slot) Available() bool {
	return s.handle != nil
}

// Err 加载失败的原因，可用时为 nil
func (s *Slot) Err() error {
	return s.err
}

// Handle 不可用时返回包装了 ErrModelUnavailable 的错误
func (s *Slot) Handle() (*Handle, error) {
	if s.handle == nil {
		return nil, fmt.Errorf("%s: %w", s.name, ErrModelUnavailable)
	}
	return s.handle, nil
}

type Stats struct {
	Name      string
	Available bool
	Requests  int64
	Failures  int64
}

func (s *Slot) Stats() Stats {
	return Stats{
		Name:      s.name,
		Available: s.Available(),
		Requests:  s.requests.Load(),
		Failures:  s.failures.Load(),
	}
}

// Loader 加载一个模型及其预处理
type Loader func(ctx context.Context) (*Handle, error)

type Entry struct {
	Name string
	Load Loader
}

// Registry 启动时构建一次，之后只读
type Registry struct {
	slots []*Slot
	index map[string]*Slot
}

func NewRegistry(slots ...*Slot) *Registry {
	r := &Registry{index: make(map[string]*Slot, len(slots))}
	for _, s := range slots {
		r.slots = append(r.slots, s)
		r.index[s.name] = s
	}
	return r
}

// LoadRegistry 依次尝试加载每个模型；失败只会让对应槽位不可用，不会中断启动，也不会重试
func LoadRegistry(ctx context.Context, entries ...Entry) *Registry {
	slots := make([]*Slot, 0, len(entries))
	for _, e := range entries {
		start := time.Now()
		h, err := safeLoad(ctx, e.Load)
		if err != nil {
			slog.Warn("model unavailable", "model", e.Name, "error", err)
			slots = append(slots, Unavailable(e.Name, err))
			continue
		}
		slog.Info("model loaded", "model", e.Name, "elapsed", time.Since(start))
		slots = append(slots, Available(e.Name, h))
	}
	return NewRegistry(slots...)
}

func safeLoad(ctx context.Context, load Loader) (h *Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("load panicked: %v", r)
		}
	}()
	if load == nil {
		return nil, errors.New("no loader configured")
	}
	h, err = load(ctx)
	if err == nil && (h == nil || h.Model == nil) {
		err = errors.New("loader returned no model")
	}
	return h, err
}

func (r *Registry) Slot(name string) (*Slot, bool) {
	s, ok := r.index[name]
	return s, ok
}

// Slots 按注册顺序返回
func (r *Registry) Slots() []*Slot {
	return r.slots
}

func (r *Registry) Close() error {
	var errs []error
	for _, s := range r.slots {
		if s.handle == nil {
			continue
		}
		if err := s.handle.Model.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
