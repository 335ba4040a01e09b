// Package server provides the HTTP API for the TTS streaming service: the
// two streaming synthesis endpoints, the voice catalog, and the monitoring
// endpoints (health, config, stats, Prometheus metrics).
package server
