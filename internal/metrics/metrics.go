// Package metrics exposes the engine's operational counters in Prometheus
// text exposition format:
//   - auctionwatch_price_updates_total          – canonical price updates received
//   - auctionwatch_channel_opens_total          – live bid channels opened
//   - auctionwatch_channel_drops_total          – channels dropped by the transport
//   - auctionwatch_bids_total{outcome}          – bid submissions (accepted|rejected_local|rejected_remote)
//   - auctionwatch_settlements_total{result}    – settlement calls (done|failed)
//
// Counters are registered in init and served by Handler at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PriceUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auctionwatch_price_updates_total",
			Help: "Canonical price updates received over the live bid channel",
		},
	)

	ChannelOpens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auctionwatch_channel_opens_total",
			Help: "Live bid channels opened",
		},
	)

	ChannelDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auctionwatch_channel_drops_total",
			Help: "Live bid channels dropped by the transport",
		},
	)

	Bids = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctionwatch_bids_total",
			Help: "Bid submissions by outcome",
		},
		[]string{"outcome"}, // accepted|rejected_local|rejected_remote
	)

	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctionwatch_settlements_total",
			Help: "Settlement calls by result",
		},
		[]string{"result"}, // done|failed
	)
)

func init() {
	prometheus.MustRegister(PriceUpdates, ChannelOpens, ChannelDrops, Bids, Settlements)
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
