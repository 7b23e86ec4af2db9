//go:build arm64

// le_check.go - the host-code emitters in emit_*.go produce ARM64 machine
// instructions directly; this core only builds for an arm64 host. The
// sibling file be_unsupported.go contains a deliberate compile error for
// every other architecture.

package main

func init() {
	compiledFeatures = append(compiledFeatures, "arm64-host-codegen")
}
