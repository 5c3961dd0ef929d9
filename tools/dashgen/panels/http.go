package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RequestRate shows non-probe requests to the health listener.
func RequestRate() *timeseries.PanelBuilder {
	return series("Request Rate", "Health listener requests per second, probes excluded", TSWidth).
		WithTarget(PromQuery(`einvoice:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps")
}

// LatencyPercentiles shows p50/p95/p99 health listener latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	p := series("Latency Percentiles", "Health listener request duration", TSWidth).Unit("s")
	for i, q := range []string{"0.50", "0.95", "0.99"} {
		p.WithTarget(PromQuery(
			fmt.Sprintf(`histogram_quantile(%s, sum(rate(einvoice_http_request_duration_seconds_bucket{job=%q}[5m])) by (le))`, q, Job),
			"p"+q[2:],
			string(rune('A'+i)),
		))
	}
	return p
}
