package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
)

// Response is what FakeRunner returns for a matching command line.
type Response struct {
	Output string
	Err    error
	// Do runs before the response is returned, e.g. to create files a real
	// command would have produced.
	Do func(opts execute.Options) error
}

// FakeRunner records commands instead of running them. Responses are keyed by
// the full command line ("nginx -t") or by the command alone ("nginx").
type FakeRunner struct {
	mu        sync.Mutex
	Responses map[string]Response
	Calls     []execute.Options
}

// NewFakeRunner returns a runner that succeeds for every command.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: make(map[string]Response)}
}

// On registers a response for a command line.
func (f *FakeRunner) On(cmdline string, r Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[cmdline] = r
	return f
}

func (f *FakeRunner) Run(_ context.Context, opts execute.Options) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, opts)
	r, ok := f.Responses[execute.CommandString(opts.Command, opts.Args...)]
	if !ok {
		r = f.Responses[opts.Command]
	}
	f.mu.Unlock()

	if r.Do != nil {
		if err := r.Do(opts); err != nil {
			return "", err
		}
	}
	return r.Output, r.Err
}

// CommandLines returns every recorded call as a command line, in order.
func (f *FakeRunner) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, execute.CommandString(c.Command, c.Args...))
	}
	return lines
}

// Ran reports whether a command line starting with prefix was recorded.
func (f *FakeRunner) Ran(prefix string) bool {
	for _, line := range f.CommandLines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
