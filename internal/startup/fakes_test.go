package startup

import (
	"context"
	"strings"
	"time"
)

// fakeRegistry is an in-memory RegistryAccess keyed by "HIVE\path".
type fakeRegistry struct {
	keys    map[string][]RegValue
	readErr error
	writes  []string // "HIVE\path\name" of binary writes
	deletes []string // "HIVE\path\name" of deleted values
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{keys: make(map[string][]RegValue)}
}

func (f *fakeRegistry) set(hive Hive, path string, values ...RegValue) {
	f.keys[hive.String()+`\`+path] = values
}

func (f *fakeRegistry) ReadValues(hive Hive, path string) ([]RegValue, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	values, ok := f.keys[hive.String()+`\`+path]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return values, nil
}

func (f *fakeRegistry) WriteBinaryValue(hive Hive, path, name string, data []byte) error {
	key := hive.String() + `\` + path
	f.writes = append(f.writes, key+`\`+name)

	values := f.keys[key]
	for i, v := range values {
		if strings.EqualFold(v.Name, name) {
			values[i] = RegValue{Name: name, Kind: RegBinary, Bin: data}
			f.keys[key] = values
			return nil
		}
	}
	f.keys[key] = append(values, RegValue{Name: name, Kind: RegBinary, Bin: data})
	return nil
}

func (f *fakeRegistry) DeleteValue(hive Hive, path, name string) error {
	key := hive.String() + `\` + path
	f.deletes = append(f.deletes, key+`\`+name)

	values := f.keys[key]
	for i, v := range values {
		if strings.EqualFold(v.Name, name) {
			f.keys[key] = append(values[:i:i], values[i+1:]...)
			return nil
		}
	}
	return ErrKeyNotFound
}

type fakeShortcuts struct {
	targets map[string]string // link path -> resolved target
	args    map[string]string
	err     error
}

func (f *fakeShortcuts) Resolve(path string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.targets[path], f.args[path], nil
}

type fakeTasks struct {
	tasks   []TaskDescriptor
	err     error
	toggled map[string]bool
	deleted []string
}

func (f *fakeTasks) LogonTasks(ctx context.Context) ([]TaskDescriptor, error) {
	return f.tasks, f.err
}

func (f *fakeTasks) SetEnabled(path string, enabled bool) error {
	if f.toggled == nil {
		f.toggled = make(map[string]bool)
	}
	f.toggled[path] = enabled
	return nil
}

func (f *fakeTasks) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type fakeServices struct {
	services []ServiceConfig
	err      error
	startSet map[string]bool
	deleted  []string
}

func (f *fakeServices) AutostartServices(ctx context.Context) ([]ServiceConfig, error) {
	return f.services, f.err
}

func (f *fakeServices) SetStartType(name string, auto bool) error {
	if f.startSet == nil {
		f.startSet = make(map[string]bool)
	}
	f.startSet[name] = auto
	return nil
}

func (f *fakeServices) Delete(name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeServices) Start(name string) error { return nil }
func (f *fakeServices) Stop(name string) error  { return nil }

type fakeProcesses struct {
	procs []Process
	err   error
}

func (f *fakeProcesses) Snapshot(ctx context.Context) ([]Process, error) {
	return f.procs, f.err
}

// approvedEnabled and approvedDisabled build store blobs for tests.
func approvedEnabled() []byte {
	b := make([]byte, 12)
	b[0] = 0x02
	return b
}

func approvedDisabled(at time.Time) []byte {
	return buildApprovedBlob(nil, false, at)
}
