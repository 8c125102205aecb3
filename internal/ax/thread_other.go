//go:build !linux

package ax

// Thread ids are not exposed portably; every caller looks like the owner.
func threadID() int {
	return 0
}
