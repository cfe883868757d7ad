// Package alloc hands out the lowest free slot from a
// bounded sequence of numbered resources.
//
// The caller decides what occupied means. When occupied
// also claims the slot on success (such as creating a file
// exclusively), the allocation is free from races between
// concurrent allocators sharing the same sequence.
package alloc

// Alloc scans the slots from 0 up to (but excluding) the
// upper limit, and returns the first slot that occupied
// reports to be free.
//
// If every slot is occupied, ok will be false. An upper
// limit of 0 means the scan is unbounded.
func Alloc(
	upperLimit uint64, occupied func(uint64) bool,
) (slot uint64, ok bool) {
	for slot = 0; upperLimit == 0 || slot < upperLimit; slot++ {
		if !occupied(slot) {
			return slot, true
		}
		if slot == ^uint64(0) {
			break
		}
	}
	return 0, false
}
