package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts member notifications by template and the channel
// that finally carried them ("none" when every channel failed).
type NotificationMetrics struct {
	sent     *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications by template and delivering channel.",
	}, []string{"template", "channel"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_channel_failures_total",
		Help:      "Failed delivery attempts per channel.",
	}, []string{"channel"})
	reg.MustRegister(sent, failures)
	return &NotificationMetrics{sent: sent, failures: failures}
}

func (n *NotificationMetrics) IncOutcome(template, channel string) {
	if n == nil || n.sent == nil {
		return
	}
	n.sent.WithLabelValues(normalizeLabel(template), normalizeLabel(channel)).Inc()
}

func (n *NotificationMetrics) IncChannelFailure(channel string) {
	if n == nil || n.failures == nil {
		return
	}
	n.failures.WithLabelValues(normalizeLabel(channel)).Inc()
}
