//go:build !windows

package winsys

import (
	"context"

	"github.com/appmanager/appman/internal/startup"
)

type TaskService struct{}

func (TaskService) LogonTasks(ctx context.Context) ([]startup.TaskDescriptor, error) {
	return nil, ErrUnsupported
}

func (TaskService) SetEnabled(path string, enabled bool) error { return ErrUnsupported }
func (TaskService) Delete(path string) error                   { return ErrUnsupported }
