//go:build windows

package winsys

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/appmanager/appman/internal/startup"
)

// ServiceControl implements startup.ServiceManager against the service
// control manager.
type ServiceControl struct{}

func (ServiceControl) AutostartServices(ctx context.Context) ([]startup.ServiceConfig, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	names, err := m.ListServices()
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	var services []startup.ServiceConfig
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return services, err
		}

		s, err := m.OpenService(name)
		if err != nil {
			continue
		}
		cfg, err := s.Config()
		if err != nil || cfg.StartType != mgr.StartAutomatic {
			s.Close()
			continue
		}

		running := false
		if status, err := s.Query(); err == nil {
			running = status.State == svc.Running || status.State == svc.StartPending
		}

		services = append(services, startup.ServiceConfig{
			Name:        name,
			DisplayName: cfg.DisplayName,
			BinaryPath:  strings.TrimSpace(cfg.BinaryPathName),
			Account:     cfg.ServiceStartName,
			Running:     running,
		})
		s.Close()
	}
	return services, nil
}

// SetStartType flips a service between automatic and demand start. Demand
// rather than disabled keeps the service manually startable, which is what
// removing it from autostart means.
func (ServiceControl) SetStartType(name string, auto bool) error {
	return withService(name, func(s *mgr.Service) error {
		cfg, err := s.Config()
		if err != nil {
			return fmt.Errorf("query config %s: %w", name, err)
		}
		if auto {
			cfg.StartType = mgr.StartAutomatic
		} else {
			cfg.StartType = mgr.StartManual
		}
		if err := s.UpdateConfig(cfg); err != nil {
			return fmt.Errorf("update config %s: %w", name, err)
		}
		return nil
	})
}

func (ServiceControl) Delete(name string) error {
	return withService(name, func(s *mgr.Service) error {
		if err := s.Delete(); err != nil {
			return fmt.Errorf("delete service %s: %w", name, err)
		}
		return nil
	})
}

func (ServiceControl) Start(name string) error {
	return withService(name, func(s *mgr.Service) error {
		if err := s.Start(); err != nil {
			return fmt.Errorf("start service %s: %w", name, err)
		}
		return waitForServiceState(s, svc.Running, 30*time.Second)
	})
}

func (ServiceControl) Stop(name string) error {
	return withService(name, func(s *mgr.Service) error {
		if _, err := s.Control(svc.Stop); err != nil {
			return fmt.Errorf("stop service %s: %w", name, err)
		}
		return waitForServiceState(s, svc.Stopped, 30*time.Second)
	})
}

func withService(name string, action func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	return action(s)
}

func waitForServiceState(s *mgr.Service, want svc.State, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		status, err := s.Query()
		if err != nil {
			return fmt.Errorf("query service state: %w", err)
		}
		if status.State == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for service state %d", want)
		}
		time.Sleep(300 * time.Millisecond)
	}
}
