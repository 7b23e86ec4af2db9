// features.go - Build/version banner (§6 diagnostics).

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"runtime"
	"sort"
)

// Version is overridden at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// compiledFeatures tracks build-time feature flags via init() registration
// in arch-specific files (le_check.go and similar); be_unsupported.go has
// no registration of its own since it's a deliberate compile error for any
// non-arm64 host, not a feature.
var compiledFeatures []string

func printFeatures() {
	fmt.Printf("m68kjit %s\n", Version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Println("Compiled features:")

	sort.Strings(compiledFeatures)
	for _, f := range compiledFeatures {
		fmt.Printf("  %s\n", f)
	}
	if len(compiledFeatures) == 0 {
		fmt.Println("  (none)")
	}
}
