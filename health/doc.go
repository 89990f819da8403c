// Package health reports whether the server and its dependencies can serve
// traffic.
//
// A Checker reports the Status of one component. The Aggregator runs every
// registered checker, in parallel and under a shared timeout, and folds the
// results into one overall Status: any unhealthy check makes the whole
// service unhealthy, any degraded one makes it degraded.
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker(db))
//	agg.Register("cache", health.NewCacheChecker(c, 10000))
//	health.Mount(router, agg)
//
// Mount serves /healthz (liveness), /readyz (readiness), and the JSON reports
// /health and /health/{name}.
package health
