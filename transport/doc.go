// Package transport contains the host-independent half of every adapter:
// the Pipeline that resolves, invokes and flattens, the generic Server that
// wraps it with per-host decode and encode steps, and the header mapping
// helpers shared by all hosts. Host bindings live in subpackages.
package transport
