// Package handler exposes commodity transactions and the transaction log over
// HTTP with Gin, along with the Prometheus and rate-limit middleware the
// server mounts in front of them.
package handler
