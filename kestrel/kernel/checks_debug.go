//go:build !kestrel_release

package kernel

// checks enables contract and state assertions.
const checks = true
