package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrNoProviders is returned when no configured provider could be initialized
var ErrNoProviders = errors.New("no classifier providers could be initialized")

// Selector holds several providers and routes each call to exactly one of
// them. After maxFailures consecutive failures the next call goes to the
// following provider. A failed call is never retried on another provider.
type Selector struct {
	providers    []Provider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// SelectorConfig holds configuration for multiple providers
type SelectorConfig struct {
	Providers   []ProviderConfig
	MaxFailures int
}

// NewSelector creates providers from config and skips the ones that fail to initialize
func NewSelector(cfg SelectorConfig, logger *zap.Logger) (*Selector, error) {
	providers := make([]Provider, 0, len(cfg.Providers))

	for i, providerCfg := range cfg.Providers {
		provider, err := NewProvider(providerCfg, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, provider)
		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	return NewSelectorFromProviders(providers, cfg.MaxFailures, logger), nil
}

// NewSelectorFromProviders wraps already constructed providers
func NewSelectorFromProviders(providers []Provider, maxFailures int, logger *zap.Logger) *Selector {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &Selector{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}
}

func (s *Selector) current() (Provider, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[s.currentIndex], s.currentIndex
}

// recordFailure counts a failure and rotates once the provider hits maxFailures
func (s *Selector) recordFailure(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCount[index]++
	if s.failureCount[index] < s.maxFailures || len(s.providers) == 1 {
		return
	}

	// Another caller may already have rotated away
	if s.currentIndex != index {
		return
	}

	s.failureCount[index] = 0
	s.currentIndex = (s.currentIndex + 1) % len(s.providers)
	s.logger.Warn("Switching classifier provider",
		zap.Int("from_index", index),
		zap.Int("to_index", s.currentIndex),
		zap.Int("total_providers", len(s.providers)))
}

func (s *Selector) resetFailures(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount[index] = 0
}

// Classify sends the message to the current provider
func (s *Selector) Classify(ctx context.Context, message string) (string, error) {
	provider, index := s.current()

	text, err := provider.Classify(ctx, message)
	if err != nil {
		s.recordFailure(index)
		return "", fmt.Errorf("provider %d: %w", index, err)
	}

	s.resetFailures(index)
	return text, nil
}

// Close closes all providers
func (s *Selector) Close() error {
	var errs []error
	for i, provider := range s.providers {
		if err := provider.Close(); err != nil {
			s.logger.Error("Failed to close provider", zap.Int("index", i), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetModelInfo returns information about the current provider
func (s *Selector) GetModelInfo() map[string]interface{} {
	provider, index := s.current()
	info := provider.GetModelInfo()

	s.mu.RLock()
	defer s.mu.RUnlock()
	info["provider_index"] = index
	info["total_providers"] = len(s.providers)
	info["failure_count"] = s.failureCount[index]
	return info
}

// GetProvidersInfo returns information about all providers
func (s *Selector) GetProvidersInfo() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := make([]map[string]interface{}, len(s.providers))
	for i, provider := range s.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = i == s.currentIndex
		providerInfo["failure_count"] = s.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
