//go:build windows

package winsys

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"github.com/appmanager/appman/internal/startup"
)

// Registry implements startup.RegistryAccess against the live registry.
type Registry struct{}

func (Registry) ReadValues(hive startup.Hive, path string) ([]startup.RegValue, error) {
	key, err := registry.OpenKey(root(hive), path, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, fmt.Errorf("%s\\%s: %w", hive, path, startup.ErrKeyNotFound)
		}
		return nil, fmt.Errorf("open %s\\%s: %w", hive, path, err)
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, fmt.Errorf("read value names %s\\%s: %w", hive, path, err)
	}

	values := make([]startup.RegValue, 0, len(names))
	for _, name := range names {
		_, valType, err := key.GetValue(name, nil)
		if err != nil {
			continue
		}

		value := startup.RegValue{Name: name}
		switch valType {
		case registry.SZ:
			value.Kind = startup.RegString
		case registry.EXPAND_SZ:
			value.Kind = startup.RegExpandString
		case registry.BINARY:
			value.Kind = startup.RegBinary
		default:
			value.Kind = startup.RegOther
		}

		switch value.Kind {
		case startup.RegString, startup.RegExpandString:
			s, _, err := key.GetStringValue(name)
			if err != nil {
				continue
			}
			value.Str = s
		case startup.RegBinary:
			b, _, err := key.GetBinaryValue(name)
			if err != nil {
				continue
			}
			value.Bin = b
		}

		values = append(values, value)
	}
	return values, nil
}

func (Registry) WriteBinaryValue(hive startup.Hive, path, name string, data []byte) error {
	// CreateKey opens the key if it already exists; the approval store is
	// created lazily by the OS, so the subkey may legitimately be absent.
	key, _, err := registry.CreateKey(root(hive), path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open %s\\%s for write: %w", hive, path, err)
	}
	defer key.Close()

	if err := key.SetBinaryValue(name, data); err != nil {
		return fmt.Errorf("set %s\\%s\\%s: %w", hive, path, name, err)
	}
	return nil
}

func (Registry) DeleteValue(hive startup.Hive, path, name string) error {
	key, err := registry.OpenKey(root(hive), path, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("%s\\%s: %w", hive, path, startup.ErrKeyNotFound)
		}
		return fmt.Errorf("open %s\\%s for write: %w", hive, path, err)
	}
	defer key.Close()

	if err := key.DeleteValue(name); err != nil {
		return fmt.Errorf("delete %s\\%s\\%s: %w", hive, path, name, err)
	}
	return nil
}

func root(hive startup.Hive) registry.Key {
	if hive == startup.HiveMachine {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}
