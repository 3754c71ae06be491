// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/internal/logger"
)

// Check is a single health check function.
type Check func(ctx context.Context) error

// Checker manages a registry of named health checks, each with a cached
// result so repeated scrapes within cacheTTL don't re-run expensive
// checks (a hierarchy fetch, a vault stat).
type Checker struct {
	checks   map[string]Check
	timeout  time.Duration
	mu       sync.RWMutex
	logger   logger.Logger
	cacheTTL time.Duration
	cache    map[string]*cachedResult
}

type cachedResult struct {
	result    *CheckResult
	expiresAt time.Time
}

// NewHealthChecker creates a new checker registry.
func NewHealthChecker(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Checker{
		checks:   make(map[string]Check),
		timeout:  timeout,
		logger:   logger.GetDefaultLogger(),
		cacheTTL: 10 * time.Second,
		cache:    make(map[string]*cachedResult),
	}
}

// SetLogger overrides the checker's logger.
func (c *Checker) SetLogger(l logger.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// SetCacheTTL overrides the per-check result cache TTL.
func (c *Checker) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheTTL = ttl
}

// RegisterCheck adds a named check to the registry.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
	c.logger.Info("health check registered", logger.String("name", name))
}

// UnregisterCheck removes a named check and its cached result.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.checks, name)
	delete(c.cache, name)
	c.logger.Info("health check unregistered", logger.String("name", name))
}

// Check runs (or returns the cached result for) a single named check.
func (c *Checker) Check(ctx context.Context, name string) (*CheckResult, error) {
	c.mu.RLock()
	check, exists := c.checks[name]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("health check not found: %s", name)
	}

	if cached := c.getCachedResult(name); cached != nil {
		return cached, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	duration := time.Since(start)

	result := &CheckResult{
		Name:      name,
		Timestamp: time.Now(),
		Duration:  duration,
	}

	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		c.logger.Warn("health check failed",
			logger.String("name", name),
			logger.Error(err),
			logger.Duration("duration", duration),
		)
	} else {
		result.Status = StatusHealthy
		c.logger.Debug("health check passed",
			logger.String("name", name),
			logger.Duration("duration", duration),
		)
	}

	c.cacheResult(name, result)
	return result, nil
}

// CheckAll runs every registered check concurrently.
func (c *Checker) CheckAll(ctx context.Context) map[string]*CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()

	results := make(map[string]*CheckResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			result, err := c.Check(ctx, name)
			if err != nil {
				result = &CheckResult{
					Name:      name,
					Status:    StatusUnhealthy,
					Message:   fmt.Sprintf("check failed: %v", err),
					Timestamp: time.Now(),
				}
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

// GetOverallStatus rolls every registered check's status up into one.
func (c *Checker) GetOverallStatus(ctx context.Context) Status {
	results := c.CheckAll(ctx)
	if len(results) == 0 {
		return StatusHealthy
	}

	hasUnhealthy, hasDegraded := false, false
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	switch {
	case hasUnhealthy:
		return StatusUnhealthy
	case hasDegraded:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func (c *Checker) getCachedResult(name string) *CheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[name]
	if !exists || time.Now().After(cached.expiresAt) {
		return nil
	}
	return cached.result
}

func (c *Checker) cacheResult(name string, result *CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[name] = &cachedResult{result: result, expiresAt: time.Now().Add(c.cacheTTL)}
}

// ClearCache discards every cached result.
func (c *Checker) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cachedResult)
	c.logger.Debug("health check cache cleared")
}

// GetSystemHealth runs every registered check and attaches a resource
// snapshot, for a single /health response body.
func (c *Checker) GetSystemHealth(ctx context.Context) *SystemHealthStatus {
	checks := c.CheckAll(ctx)
	status := c.GetOverallStatus(ctx)

	return &SystemHealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		System:    CheckSystem(),
	}
}

// HierarchyFreshnessCheck fails if the hierarchy cache hasn't refreshed
// within maxAge, catching a stuck background refresh loop before it is
// noticed downstream as stale keys.
func HierarchyFreshnessCheck(lastRefresh func() time.Time, maxAge time.Duration) Check {
	return func(ctx context.Context) error {
		if lastRefresh == nil {
			return fmt.Errorf("hierarchy freshness checker not configured")
		}
		age := time.Since(lastRefresh())
		if age > maxAge {
			return fmt.Errorf("hierarchy cache is %s stale (max %s)", age, maxAge)
		}
		return nil
	}
}

// VaultHealthCheck fails if the key vault's Exists probe call errors out
// (directory missing, unreadable, permissions changed underneath us).
func VaultHealthCheck(probe func() error) Check {
	return func(ctx context.Context) error {
		if probe == nil {
			return fmt.Errorf("vault checker not configured")
		}

		done := make(chan error, 1)
		go func() { done <- probe() }()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		}
	}
}

// KeyExpiryCheck fails if any active key's earliest expiry is inside the
// warning window, giving operators advance notice before a rotation
// becomes overdue.
func KeyExpiryCheck(earliestExpiry func() (time.Time, bool), warnWithin time.Duration) Check {
	return func(ctx context.Context) error {
		if earliestExpiry == nil {
			return fmt.Errorf("key expiry checker not configured")
		}
		expiry, ok := earliestExpiry()
		if !ok {
			return nil
		}
		if time.Until(expiry) < warnWithin {
			return fmt.Errorf("a key expires at %s, inside the %s warning window", expiry, warnWithin)
		}
		return nil
	}
}

// SentinelRecoveryCheck fails if fewer than threshold recovery contacts
// are currently reachable, since a restore cannot reassemble the secret
// below that count.
func SentinelRecoveryCheck(reachableContacts func() int, threshold int) Check {
	return func(ctx context.Context) error {
		if reachableContacts == nil {
			return fmt.Errorf("sentinel recovery checker not configured")
		}
		n := reachableContacts()
		if n < threshold {
			return fmt.Errorf("only %d of %d required recovery contacts reachable", n, threshold)
		}
		return nil
	}
}
