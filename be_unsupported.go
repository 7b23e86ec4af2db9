//go:build !arm64

package main

// This core emits ARM64 host machine code directly and only runs on an
// arm64 host.
var _ = "m68kjit requires an arm64 host" + 1
