package runner

import (
	"context"
	"sync"
)

// Call is one invocation recorded by Fake.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Line returns the call's command line.
func (c Call) Line() string {
	return CommandLine(c.Name, c.Args...)
}

// Response is a scripted outcome for Fake.
type Response struct {
	ExitCode int
	Output   string
	Err      error
}

// Fake is a Runner that records calls and returns scripted responses.
// Responses are looked up by "name subcommand" first, then by "name";
// unscripted commands succeed with no output.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]Response

	// OnRun, if set, is called for every command before the response is
	// returned. Tests use it to simulate side effects such as a clone.
	OnRun func(call Call) error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

// Respond scripts the response for key ("git clone", "npm", ...).
func (f *Fake) Respond(key string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = resp
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	resp, ok := Response{}, false
	if len(args) > 0 {
		resp, ok = f.responses[name+" "+args[0]]
	}
	if !ok {
		resp = f.responses[name]
	}
	hook := f.OnRun
	f.mu.Unlock()

	res := Result{Command: call.Line(), ExitCode: resp.ExitCode, Output: resp.Output}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if hook != nil {
		if err := hook(call); err != nil {
			return res, err
		}
	}
	return res, resp.Err
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded command lines in order.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

var _ Runner = (*Fake)(nil)
