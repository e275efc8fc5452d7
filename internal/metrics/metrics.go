package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages processed, by classified intent",
		},
		[]string{"intent"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Total number of tool invocations made by the agent",
		},
		[]string{"tool", "outcome"},
	)

	ChatDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "chat_request_duration_seconds",
			Help: "Duration of chat message processing in seconds",
		},
	)
)
