//go:build !windows

package winsys

import "github.com/appmanager/appman/internal/startup"

type Registry struct{}

func (Registry) ReadValues(hive startup.Hive, path string) ([]startup.RegValue, error) {
	return nil, ErrUnsupported
}

func (Registry) WriteBinaryValue(hive startup.Hive, path, name string, data []byte) error {
	return ErrUnsupported
}

func (Registry) DeleteValue(hive startup.Hive, path, name string) error {
	return ErrUnsupported
}
