/*
Package observability provides tools for monitoring the replication hub.

Metrics turns hub lifecycle hooks into Prometheus collectors:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	h := hub.New(doc, hub.WithHooks(m.Hooks()))
*/
package observability
