// Package prometheus exposes sessionauth engine counters and latency
// histograms through client_golang.
//
// [PrometheusExporter] is a prometheus.Collector registered in its own
// registry; mount [PrometheusExporter.Handler] wherever the scrape endpoint
// should live. Counter names are sessionauth_*_total.
package prometheus
