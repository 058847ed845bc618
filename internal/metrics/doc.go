// Package metrics measures runs of the host.
//
// Two kinds of measurement live here. Step metrics implement [sim.Metric]
// and summarise a run as one number each ([ControlEffort], [Stability],
// [Energy], [EnergyDrift]). The Prometheus [Collector] counts signal cache
// hits and misses and entity steps for the whole process; the CLI dumps it
// with [WriteText].
package metrics
