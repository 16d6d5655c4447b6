package antminer

import (
	"context"
	"errors"
	"sync"

	"github.com/rigpulse/rigpulse/pkg/catalog"
	"github.com/rigpulse/rigpulse/pkg/transport"
)

// Shared fakes for the dialect tests: canned responses per command, with
// call counting so short-circuit behavior can be asserted.

type fakeRPC struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	calls     map[string]int
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		responses: make(map[string]map[string]any),
		calls:     make(map[string]int),
	}
}

func (f *fakeRPC) Send(_ context.Context, command string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[command]++
	if resp, ok := f.responses[command]; ok {
		return resp, nil
	}
	return nil, &transport.Error{Channel: "rpc", Command: command, Err: errors.New("no such command")}
}

type fakeWeb struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	calls     map[string]int
	lastParam map[string]map[string]any
}

func newFakeWeb() *fakeWeb {
	return &fakeWeb{
		responses: make(map[string]map[string]any),
		calls:     make(map[string]int),
		lastParam: make(map[string]map[string]any),
	}
}

func (f *fakeWeb) Send(_ context.Context, command string, params map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[command]++
	if params != nil {
		f.lastParam[command] = params
	}
	if resp, ok := f.responses[command]; ok {
		return resp, nil
	}
	return nil, &transport.Error{Channel: "web", Command: command, Err: errors.New("no such command")}
}

func (f *fakeWeb) callCount(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[command]
}

func s19Spec() catalog.Spec {
	return catalog.Spec{
		Model:              "Antminer S19",
		ExpectedHashboards: 3,
		ExpectedChips:      76,
		ExpectedFans:       4,
		Algorithm:          "sha256d",
	}
}

func s9Spec() catalog.Spec {
	return catalog.Spec{
		Model:              "Antminer S9",
		ExpectedHashboards: 3,
		ExpectedChips:      63,
		ExpectedFans:       2,
		Algorithm:          "sha256d",
	}
}
