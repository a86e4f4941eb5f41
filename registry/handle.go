package registry

import "fmt"

// Handle identifies an open link. The zero Handle is never valid.
type Handle uint32

const maxSlots = 1<<16 - 1

func makeHandle(gen uint16, index int) Handle { return Handle(uint32(gen)<<16 | uint32(index)) }

func (h Handle) index() int         { return int(h & 0xffff) }
func (h Handle) generation() uint16 { return uint16(h >> 16) }

func (h Handle) String() string { return fmt.Sprintf("0x%08x", uint32(h)) }

// nextGeneration skips zero so that no live Handle is zero.
func nextGeneration(g uint16) uint16 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}
