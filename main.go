// main.go - Entry point: boots guest memory from an executable image and
// runs the dispatcher until halt (§6).

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML supervisor config file")
		showFeat   = flag.Bool("features", false, "print build features and exit")
		memSize    = flag.Int("mem", 16*1024*1024, "guest RAM size in bytes")
	)
	flag.Parse()

	if *showFeat {
		printFeatures()
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: m68kjit [-config file.toml] [-mem bytes] <image>")
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	cfg, err := LoadSupervisorConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading image: %v\n", err)
		os.Exit(1)
	}

	mem := NewFlatGuestMemory(*memSize)
	state := NewGuestState(cfg)

	loader := &rawImageLoader{}
	entry, err := loader.Load(mem, image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading image: %v\n", err)
		os.Exit(1)
	}
	state.Boot(mem)
	state.PC = entry

	arena, err := NewMmapArena(int(cfg.ArenaBytes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "host arena: %v\n", err)
		os.Exit(1)
	}
	cache := NewTUCache(arena, DefaultSoftFlushHigh, DefaultSoftFlushLow)
	dec := NewM68KDecoder()
	disp := NewDispatcher(state, mem, cache, arena, dec)

	svc := StartServiceThreads(context.Background(), state, nil, cfg)
	defer svc.Stop()

	if err := disp.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
}

// rawImageLoader loads a flat binary at guest address 0 with the
// vector table already embedded at the front (§6), the simplest
// ExecutableLoader this core ships with; HUNK/ELF loaders are external
// collaborators that satisfy the same interface (§1).
type rawImageLoader struct{}

func (rawImageLoader) Load(mem GuestMemory, image []byte) (entryPC uint32, err error) {
	const loadBase = 0
	for i, b := range image {
		mem.Write8(loadBase+uint32(i), b)
	}
	return mem.Read32(4), nil
}

var _ ExecutableLoader = rawImageLoader{}
