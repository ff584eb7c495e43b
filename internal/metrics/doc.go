// Package metrics counts GitHub page requests, relationship actions, and
// traversal node transitions in a per-run Prometheus registry that can be
// exported as a node_exporter textfile.
package metrics
