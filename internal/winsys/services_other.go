//go:build !windows

package winsys

import (
	"context"

	"github.com/appmanager/appman/internal/startup"
)

type ServiceControl struct{}

func (ServiceControl) AutostartServices(ctx context.Context) ([]startup.ServiceConfig, error) {
	return nil, ErrUnsupported
}

func (ServiceControl) SetStartType(name string, auto bool) error { return ErrUnsupported }
func (ServiceControl) Delete(name string) error                  { return ErrUnsupported }
func (ServiceControl) Start(name string) error                   { return ErrUnsupported }
func (ServiceControl) Stop(name string) error                    { return ErrUnsupported }
