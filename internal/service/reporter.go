package service

import (
	"context"
	"fmt"
)

// StatsSource aggregates the feedback ledger
type StatsSource interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// ModelSource describes the classifier in use
type ModelSource interface {
	GetModelInfo() map[string]interface{}
	GetProvidersInfo() []map[string]interface{}
}

// ModelInfo names the provider and model answering analyses
type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Reporter answers read-only questions about the running service
type Reporter struct {
	stats  StatsSource
	models ModelSource
}

// NewReporter creates a new reporter
func NewReporter(stats StatsSource, models ModelSource) *Reporter {
	return &Reporter{
		stats:  stats,
		models: models,
	}
}

// ActiveModel returns the provider currently selected for analyses
func (r *Reporter) ActiveModel() ModelInfo {
	info := ModelInfo{Provider: "unknown", Model: "unknown"}
	if r.models == nil {
		return info
	}

	modelInfo := r.models.GetModelInfo()
	if p, ok := modelInfo["provider"].(string); ok {
		info.Provider = p
	}
	if m, ok := modelInfo["model"].(string); ok {
		info.Model = m
	}
	return info
}

// Providers lists every configured provider in selection order
func (r *Reporter) Providers() []map[string]interface{} {
	if r.models == nil {
		return []map[string]interface{}{}
	}
	return r.models.GetProvidersInfo()
}

// GetStats returns feedback statistics together with the active model
func (r *Reporter) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := r.stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback stats: %w", err)
	}
	stats["active_model"] = r.ActiveModel()
	return stats, nil
}
