// Package health reports whether the service's dependencies are
// usable: the analytics database must answer a ping and the query
// cache's disk tier must stay writable. A degraded cache does not
// make the service unhealthy, it only loses the read acceleration.
package health
