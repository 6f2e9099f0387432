package startup

import (
	"context"
	"errors"
)

// ServiceAutostartProbe lists services configured to start automatically.
type ServiceAutostartProbe struct {
	Svc ServiceManager
}

func (p *ServiceAutostartProbe) Name() string { return "service" }

func (p *ServiceAutostartProbe) Collect(ctx context.Context) ([]RawEntry, error) {
	if p.Svc == nil {
		return nil, errors.New("service manager unavailable")
	}

	services, err := p.Svc.AutostartServices(ctx)
	if err != nil && len(services) == 0 {
		return nil, err
	}

	var entries []RawEntry
	for _, s := range services {
		if s.BinaryPath == "" {
			continue
		}
		name := s.DisplayName
		if name == "" {
			name = s.Name
		}
		entries = append(entries, RawEntry{
			Kind:      SourceService,
			Name:      name,
			RawTarget: s.BinaryPath,
			Scope:     ScopeMachine,
			Location:  s.Name,
			RunsAs:    s.Account,
		})
	}

	return entries, err
}
