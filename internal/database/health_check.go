package database

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// HealthChecker 数据库健康检查器
type HealthChecker struct {
	db        *sql.DB
	timeout   time.Duration
	mu        sync.RWMutex
	isHealthy bool
	lastCheck time.Time
	lastError error
}

// HealthCheckResult 健康检查结果
type HealthCheckResult struct {
	Healthy      bool      `json:"healthy"`
	LastCheck    time.Time `json:"last_check"`
	LastError    string    `json:"last_error,omitempty"`
	ResponseTime string    `json:"response_time,omitempty"`
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(db *sql.DB) *HealthChecker {
	return &HealthChecker{
		db:      db,
		timeout: 5 * time.Second,
	}
}

// Check 执行一次健康检查
func (hc *HealthChecker) Check(ctx context.Context) HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	start := time.Now()
	err := hc.db.PingContext(ctx)
	elapsed := time.Since(start)

	hc.mu.Lock()
	hc.isHealthy = err == nil
	hc.lastCheck = start
	hc.lastError = err
	hc.mu.Unlock()

	result := HealthCheckResult{
		Healthy:      err == nil,
		LastCheck:    start,
		ResponseTime: elapsed.String(),
	}
	if err != nil {
		result.LastError = err.Error()
	}
	return result
}

// IsHealthy 返回最近一次检查的结果
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.isHealthy
}
