package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Instance interface {
	Register(r prometheus.Registerer)

	ConnectionsOpen() prometheus.Gauge
	MessagesDelivered() prometheus.Counter
	MessagesReplayed() prometheus.Counter
	MessagesQueued() prometheus.Counter
}

type Options struct {
	Labels prometheus.Labels
}

func New(o Options) Instance {
	return &metrics{
		connectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chat_connections_open",
			Help:        "Websocket connections currently held by this process",
			ConstLabels: o.Labels,
		}),
		messagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "chat_messages_delivered_total",
			Help:        "Messages delivered directly to an online receiver",
			ConstLabels: o.Labels,
		}),
		messagesReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "chat_messages_replayed_total",
			Help:        "Undelivered messages replayed at reconnect",
			ConstLabels: o.Labels,
		}),
		messagesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "chat_messages_queued_total",
			Help:        "Messages left undelivered because the receiver was offline",
			ConstLabels: o.Labels,
		}),
	}
}

type metrics struct {
	connectionsOpen   prometheus.Gauge
	messagesDelivered prometheus.Counter
	messagesReplayed  prometheus.Counter
	messagesQueued    prometheus.Counter
}

func (m *metrics) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.connectionsOpen,
		m.messagesDelivered,
		m.messagesReplayed,
		m.messagesQueued,
	)
}

func (m *metrics) ConnectionsOpen() prometheus.Gauge {
	return m.connectionsOpen
}

func (m *metrics) MessagesDelivered() prometheus.Counter {
	return m.messagesDelivered
}

func (m *metrics) MessagesReplayed() prometheus.Counter {
	return m.messagesReplayed
}

func (m *metrics) MessagesQueued() prometheus.Counter {
	return m.messagesQueued
}
