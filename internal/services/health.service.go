package services

import (
	"context"
	"errors"
	"sort"
)

var ErrUnhealthy = errors.New("one or more dependencies are unhealthy")

type HealthCheck func(ctx context.Context) error

type HealthService struct {
	checks map[string]HealthCheck
}

func NewHealthService() *HealthService {
	return &HealthService{checks: make(map[string]HealthCheck)}
}

// Register adds a named dependency check, e.g. "postgres" or "redis".
func (s *HealthService) Register(name string, check HealthCheck) {
	s.checks[name] = check
}

// Check runs every registered check and reports "ok" or the error text per dependency.
func (s *HealthService) Check(ctx context.Context) (map[string]string, error) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed bool
	status := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			status[name] = err.Error()
			failed = true
			continue
		}
		status[name] = "ok"
	}
	if failed {
		return status, ErrUnhealthy
	}
	return status, nil
}
