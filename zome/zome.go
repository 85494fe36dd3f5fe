// Package zome is a closed, Go-native zome runtime. Every function a DNA
// declares is bound to a statically typed handler with Register, and the
// whole set is checked against the DNA once, before the first call.
package zome

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/sandbox"
)

// HandlerFunc is the untyped form every registered handler is reduced to.
type HandlerFunc func(ctx context.Context, host sandbox.Host, params json.RawMessage) (json.RawMessage, error)

// Runtime maps (zome, function) to handlers.
type Runtime struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

var (
	_ sandbox.Runtime = (*Runtime)(nil)
	_ sandbox.Checker = (*Runtime)(nil)
)

func NewRuntime() *Runtime {
	return &Runtime{modules: map[string]*Module{}}
}

// Module holds the handlers of one zome.
type Module struct {
	name     string
	rt       *Runtime
	handlers map[string]HandlerFunc
}

// Zome returns the module for name, creating it on first use.
func (r *Runtime) Zome(name string) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[name]
	if !ok {
		m = &Module{name: name, rt: r, handlers: map[string]HandlerFunc{}}
		r.modules[name] = m
	}
	return m
}

func (m *Module) Name() string { return m.name }

// Handle binds an untyped handler. It panics if fn is already bound.
func (m *Module) Handle(fn string, h HandlerFunc) {
	if fn == "" || h == nil {
		panic("zome: Handle with empty name or nil handler")
	}
	m.rt.mu.Lock()
	defer m.rt.mu.Unlock()
	if _, dup := m.handlers[fn]; dup {
		panic(fmt.Sprintf("zome: %s/%s registered twice", m.name, fn))
	}
	m.handlers[fn] = h
}

// Register binds fn to a typed handler. Parameters are decoded strictly into
// Req: unknown fields and trailing data are structural errors. An empty or
// null parameter document leaves Req at its zero value. A json.RawMessage
// Req receives the parameters verbatim.
//
// The response is encoded with the canonical JSON encoder; a json.RawMessage
// Resp is returned as is.
func Register[Req, Resp any](m *Module, fn string, h func(ctx context.Context, host sandbox.Host, req Req) (Resp, error)) {
	m.Handle(fn, func(ctx context.Context, host sandbox.Host, params json.RawMessage) (json.RawMessage, error) {
		req, err := decode[Req](params)
		if err != nil {
			return nil, errs.Wrap(errs.KindStructural, "ZOME-003", "invalid parameters for "+m.name+"/"+fn, err)
		}
		resp, err := h(ctx, host, req)
		if err != nil {
			return nil, err
		}
		out, err := encode(resp)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "ZOME-004", "encode result of "+m.name+"/"+fn, err)
		}
		return out, nil
	})
}

func decode[Req any](params json.RawMessage) (Req, error) {
	var req Req
	if raw, ok := any(&req).(*json.RawMessage); ok {
		*raw = append(json.RawMessage(nil), params...)
		return req, nil
	}
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return req, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, errors.New("trailing data after parameters")
	}
	return req, nil
}

func encode(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("handler returned invalid JSON")
		}
		return raw, nil
	}
	return entry.Marshal(v)
}

// Invoke runs the handler bound to inv.Zome/inv.Function.
func (r *Runtime) Invoke(ctx context.Context, inv sandbox.Invocation, host sandbox.Host) (json.RawMessage, error) {
	r.mu.RLock()
	m, ok := r.modules[inv.Zome]
	var h HandlerFunc
	if ok {
		h = m.handlers[inv.Function]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.KindStructural, "ZOME-001", "no module for zome "+inv.Zome)
	}
	if h == nil {
		return nil, errs.New(errs.KindStructural, "ZOME-002", "no handler for "+inv.Zome+"/"+inv.Function)
	}
	return h(ctx, host, inv.Params)
}

// Check verifies that r serves exactly the functions d declares: every
// declared function has a handler, and every handler is declared under at
// least one capability of its zome.
func (r *Runtime) Check(d *dna.DNA) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []error
	declared := map[string]map[string]bool{}
	for zn, z := range d.Zomes {
		if z == nil {
			continue
		}
		fns := map[string]bool{}
		for _, c := range z.Capabilities {
			if c == nil {
				continue
			}
			for _, f := range c.Functions {
				fns[f.Name] = true
			}
		}
		declared[zn] = fns
	}

	for _, zn := range sortedKeys(declared) {
		m := r.modules[zn]
		for _, fn := range sortedKeys(declared[zn]) {
			if m == nil || m.handlers[fn] == nil {
				problems = append(problems, fmt.Errorf("%s/%s declared but has no handler", zn, fn))
			}
		}
	}
	for _, zn := range sortedKeys(r.modules) {
		fns, ok := declared[zn]
		if !ok {
			problems = append(problems, fmt.Errorf("module %s is not a zome of %s", zn, d.Name))
			continue
		}
		for _, fn := range sortedKeys(r.modules[zn].handlers) {
			if !fns[fn] {
				problems = append(problems, fmt.Errorf("%s/%s has a handler but is not declared", zn, fn))
			}
		}
	}
	if len(problems) > 0 {
		return errs.Wrap(errs.KindStructural, "ZOME-101", "runtime does not match dna "+d.Name, errors.Join(problems...))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
