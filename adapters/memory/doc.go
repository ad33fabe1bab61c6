// Package memory provides in-memory implementations of the civicpush
// repository interfaces.
//
// The repositories are safe for concurrent use and hand out copies, so
// callers never share state with the store. They back the server's
// STORE=memory mode, the examples and the tests of the root package.
package memory
