package dict

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is used in structure padding so that Dicts allocated
// side by side (one per shard, for example) do not share cache lines.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
