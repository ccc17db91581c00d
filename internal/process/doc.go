// Package process holds the platform-specific parts of subprocess control:
// process-group setup at spawn time and tree kill on timeout or cancel.
package process
