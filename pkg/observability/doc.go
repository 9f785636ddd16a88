/*
Package observability turns the analysis lifecycle hooks into Prometheus
metrics and structured log lines.

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		log.Fatal(err)
	}
	inspector, _ := probe.New(
		probe.WithLifecycleHooks(metrics.Hooks()),
		probe.WithLifecycleHooks(observability.LogHooks(logger)),
	)
	http.Handle("/metrics", observability.Handler(reg))
*/
package observability
