package echo

import (
	"time"
	"unsafe"
)

// Default asset used to pay for read-only contract calls: "1.3.0", the core
// asset.
const DefaultAssetId = "1.3.0"

// Zero-initialized arrays for equality comparisons.
var (
	ZeroWord Word
)

var (
	// Determines the default reconnect interval of long-lived RPC transports,
	// such as WsTrans. Configurable on per-transport basis.
	defaultReconnectInterval = time.Second
)

/*
Reinterprets a byte slice as a string, saving an allocation.
Borrowed from the standard library. Reasonably safe.
*/
func bytesToMutableString(bytes []byte) string {
	return *(*string)(unsafe.Pointer(&bytes))
}

/*
Returns a byte slice backed by the provided string. Mutations are reflected in
the source string, unless it's backed by constant storage, in which case they
trigger a segfault. Reslicing the bytes should work fine. Should be safe as long
as the bytes are treated as read-only.
*/
func stringToBytesUnsafe(str string) []byte {
	type sliceHeader struct {
		dat uintptr
		len int
		cap int
	}
	slice := *(*sliceHeader)(unsafe.Pointer(&str))
	slice.cap = slice.len
	return *(*[]byte)(unsafe.Pointer(&slice))
}
