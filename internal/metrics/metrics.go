package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 业务指标，result 标签为 ok / error
var (
	IndexBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgpt_index_builds_total",
			Help: "Number of document index builds",
		},
		[]string{"result"},
	)

	IndexQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgpt_index_queries_total",
			Help: "Number of document index queries",
		},
		[]string{"result"},
	)

	ChatCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgpt_chat_completions_total",
			Help: "Number of chat completion calls",
		},
		[]string{"result"},
	)

	ChatCompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botgpt_chat_completion_duration_seconds",
			Help:    "Latency of chat completion calls",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Handler 返回Prometheus指标的HTTP处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
