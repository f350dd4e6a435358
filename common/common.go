package common

const (
	// Geometry of the ramdisk formatted at boot.
	BLOCKSIZE uint64 = 1024
	NBLOCKS   uint64 = 512

	// Root directory and inode shape.
	DIRSIZE     uint64 = 16
	FILENAMELEN uint64 = 32
	INODEBLOCKS uint64 = 12
	NUMFD       uint64 = 16

	NTHREADS uint64 = 16
	HEAPSIZE uint64 = 64 * 1024
	PRIORITY int64  = 10
)

type Tid uint64
type Bnum = uint64

const (
	SUPERBLK  Bnum = 0 // superblock
	BMBLK     Bnum = 1 // freemask
	DATASTART Bnum = 2
)

// EMPTY marks an unused directory entry or inode block slot.
const EMPTY uint64 = ^uint64(0)
