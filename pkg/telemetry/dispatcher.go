package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rigpulse/rigpulse/pkg/transport"
)

// ErrNoData is the absence reason an extractor returns when none of its
// sources produced a usable payload and it has no fallback of its own.
var ErrNoData = errors.New("telemetry: no data available")

// Report records the per-field outcome of one collection pass. A nil
// entry means the field was extracted; a non-nil entry carries the reason
// it was left at its default.
type Report map[Field]error

// OK reports whether the field was extracted successfully.
func (r Report) OK(f Field) bool {
	err, seen := r[f]
	return seen && err == nil
}

// Failed returns the fields that fell back to their defaults, in
// canonical order.
func (r Report) Failed() []Field {
	var out []Field
	for _, f := range AllFields() {
		if err, seen := r[f]; seen && err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Dispatcher executes collection passes against a registry: it issues the
// source commands, isolates per-field failures, and merges extracted
// values into one snapshot.
type Dispatcher struct {
	rpc   transport.RPC
	web   transport.Web
	limit int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFieldConcurrency bounds how many fields are dispatched at once.
// This is a resource-sharing knob for large fleets, not a correctness
// requirement; the merge is order-independent.
func WithFieldConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// NewDispatcher creates a dispatcher over the two transport channels.
func NewDispatcher(rpc transport.RPC, web transport.Web, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		rpc:   rpc,
		web:   web,
		limit: 4,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Collect runs one collection pass for the requested fields. The snapshot
// is always returned: a transport failure or malformed payload for one
// field leaves that field at its documented default and never aborts the
// others. The only error is an *UnknownFieldError, raised before any
// transport traffic.
func (d *Dispatcher) Collect(ctx context.Context, reg Registry, fields ...Field) (Snapshot, Report, error) {
	bindings := make(map[Field]Binding, len(fields))
	for _, f := range fields {
		b, err := reg.Lookup(f)
		if err != nil {
			return Snapshot{}, nil, err
		}
		bindings[f] = b
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		snap    Snapshot
		report  = make(Report, len(fields))
		applies []Apply
		sem     = make(chan struct{}, d.limit)
		fetcher = newFetcher(d.rpc, d.web)
	)

	for _, f := range fields {
		wg.Add(1)
		go func(f Field, b Binding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			apply, err := d.extractField(ctx, fetcher, b)

			mu.Lock()
			defer mu.Unlock()
			report[f] = err
			if err == nil && apply != nil {
				applies = append(applies, apply)
			}
		}(f, bindings[f])
	}
	wg.Wait()

	for _, apply := range applies {
		apply(&snap)
	}
	return snap, report, nil
}

// extractField fetches the field's sources in priority order and hands
// the first successful payload to the extractor. With every source
// exhausted (or none declared) the extractor still runs, on an empty
// payload; defining the default for that case is the extractor's job.
func (d *Dispatcher) extractField(ctx context.Context, fetcher *fetcher, b Binding) (apply Apply, err error) {
	defer func() {
		if r := recover(); r != nil {
			apply, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()

	payload := Payload{}
	for _, src := range b.Sources {
		data, ferr := fetcher.fetch(ctx, src)
		if ferr != nil {
			continue
		}
		payload[src.Alias] = data
		break
	}

	return b.Extract(ctx, payload)
}

// fetcher deduplicates source commands within one collection pass: two
// fields declaring the same command share a single transport call.
type fetcher struct {
	rpc transport.RPC
	web transport.Web

	mu      sync.Mutex
	results map[string]*fetchResult
}

type fetchResult struct {
	once sync.Once
	data map[string]any
	err  error
}

func newFetcher(rpc transport.RPC, web transport.Web) *fetcher {
	return &fetcher{
		rpc:     rpc,
		web:     web,
		results: make(map[string]*fetchResult),
	}
}

func (f *fetcher) fetch(ctx context.Context, src Source) (map[string]any, error) {
	key := src.Channel.String() + ":" + src.Command

	f.mu.Lock()
	res, ok := f.results[key]
	if !ok {
		res = &fetchResult{}
		f.results[key] = res
	}
	f.mu.Unlock()

	res.once.Do(func() {
		res.data, res.err = f.send(ctx, src)
	})
	return res.data, res.err
}

func (f *fetcher) send(ctx context.Context, src Source) (map[string]any, error) {
	switch src.Channel {
	case ChannelRPC:
		if f.rpc == nil {
			return nil, &transport.Error{Channel: "rpc", Command: src.Command, Err: errors.New("no rpc channel configured")}
		}
		return f.rpc.Send(ctx, src.Command)
	case ChannelWeb:
		if f.web == nil {
			return nil, &transport.Error{Channel: "web", Command: src.Command, Err: errors.New("no web channel configured")}
		}
		return f.web.Send(ctx, src.Command, nil)
	default:
		return nil, fmt.Errorf("unknown channel %d", src.Channel)
	}
}
