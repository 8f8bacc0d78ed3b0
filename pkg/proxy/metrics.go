package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	responsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttb_proxy_responses_total",
		Help: "Total proxied responses by cache status (HIT, MISS, BYPASS, error, rejected)",
	}, []string{"cache_status"})

	corsRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttb_proxy_cors_rejections_total",
		Help: "Total requests rejected because their Origin is not allow-listed",
	})
)
