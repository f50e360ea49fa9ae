//go:build kestrel_release

package kernel

const checks = false
