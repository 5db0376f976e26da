package database

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 数据库连接池指标收集器
type MetricsCollector struct {
	db              *sql.DB
	collectInterval time.Duration
	stopChan        chan struct{}

	dbConnectionsGauge *prometheus.GaugeVec
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector(db *sql.DB) *MetricsCollector {
	mc := &MetricsCollector{
		db:              db,
		collectInterval: 15 * time.Second,
		stopChan:        make(chan struct{}),
	}

	mc.dbConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "botgpt_database_connections",
			Help: "Number of database connections in different states",
		},
		[]string{"state"},
	)

	return mc
}

// Start 周期性收集连接池状态
func (mc *MetricsCollector) Start() {
	go func() {
		ticker := time.NewTicker(mc.collectInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mc.collect()
			case <-mc.stopChan:
				return
			}
		}
	}()
}

// Stop 停止收集
func (mc *MetricsCollector) Stop() {
	close(mc.stopChan)
}

func (mc *MetricsCollector) collect() {
	stats := mc.db.Stats()
	mc.dbConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
	mc.dbConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
	mc.dbConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
}
