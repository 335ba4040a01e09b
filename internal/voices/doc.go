// Package voices holds the static voice catalog for the synthesis backend.
// The catalog is fixed metadata compiled into the service; there are no
// management operations.
package voices
