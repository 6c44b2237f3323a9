package constants

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLinePadSize is the size of a cache line on the build target.
const CacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// MaxThreads bounds the number of worker threads a scheduler may create and
// sizes the parking lot hash table.
const MaxThreads = 256
