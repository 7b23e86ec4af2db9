// consistency.go - Cache consistency for self-modifying guest code (§5, §9).
//
// Two complementary mechanisms: a cheap fingerprint check run lazily when a
// unit is found (catches modification between builds without bookkeeping
// cost on the write path), and a page-granular reverse index that lets a
// guest memory write proactively invalidate every unit whose source range
// overlaps the written page, for callers that can afford to pay on writes
// instead of reads.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

const pageShift = 12 // 4KiB guest pages

// ReverseIndex maps a guest page number to the set of cached unit PCs whose
// source bytes fall (at least partly) within that page.
type ReverseIndex struct {
	pages map[uint32][]uint32 // page number -> guest PCs of units covering it
}

// NewReverseIndex builds an empty index.
func NewReverseIndex() *ReverseIndex {
	return &ReverseIndex{pages: make(map[uint32][]uint32)}
}

// Record registers a unit spanning [pc, pc+sourceLen) against every page it
// touches, called once right after TUCache.Insert.
func (ri *ReverseIndex) Record(pc uint32, sourceLen uint32) {
	start := pc >> pageShift
	end := (pc + sourceLen - 1) >> pageShift
	for p := start; p <= end; p++ {
		ri.pages[p] = append(ri.pages[p], pc)
	}
}

// Forget removes a unit's page entries, called on every eviction so the
// index never grows unbounded across a long-running guest.
func (ri *ReverseIndex) Forget(pc uint32, sourceLen uint32) {
	start := pc >> pageShift
	end := (pc + sourceLen - 1) >> pageShift
	for p := start; p <= end; p++ {
		list := ri.pages[p]
		for i, v := range list {
			if v == pc {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(ri.pages, p)
		} else {
			ri.pages[p] = list
		}
	}
}

// PCsTouchedByWrite returns every cached unit's guest PC whose source range
// might overlap a guest write at addr (§5). InvalidateOnWrite is its caller;
// the Dispatcher installs no write hook that calls either of them.
func (ri *ReverseIndex) PCsTouchedByWrite(addr uint32) []uint32 {
	return ri.pages[addr>>pageShift]
}

// InvalidateOnWrite is the glue the memory-write path calls: it looks up
// affected units via the reverse index and evicts any whose live bucket
// entry still exists, without requiring the fingerprint check to ever run
// for code that is never re-entered before being overwritten again.
func InvalidateOnWrite(cache *TUCache, ri *ReverseIndex, addr uint32) {
	for _, pc := range ri.PCsTouchedByWrite(addr) {
		u := cache.Find(pc)
		if u == nil {
			continue
		}
		idx := cache.indexOf(u)
		if idx < 0 {
			continue
		}
		ri.Forget(u.GuestPC, u.SourceLen)
		cache.evict(idx)
	}
}

// indexOf recovers the slot index backing a *TranslationUnit returned by
// Find/Insert, so InvalidateOnWrite can evict it through the same path
// SoftFlush/HardFlush use. It is a linear scan comparing addresses; a
// pointer obtained before a later Insert grew (and so reallocated) the
// units slice matches no slot and yields -1.
func (c *TUCache) indexOf(u *TranslationUnit) int {
	for i := range c.units {
		if &c.units[i] == u {
			return i
		}
	}
	return -1
}
