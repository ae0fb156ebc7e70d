// Package daemon runs the analysis pipeline as a long-lived background
// service: single-instance locking, lifecycle management, and the local
// HTTP API the CLI talks to.
package daemon
