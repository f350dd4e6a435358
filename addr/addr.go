package addr

import (
	"github.com/mit-pdos/go-bareos/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a bit offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bits
}

// Flatid numbers every bit of a disk with blocks of bsz bytes.
func (a Addr) Flatid(bsz uint64) uint64 {
	return uint64(a.Blkno)*(bsz*8) + a.Off
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkByteAddr addresses byte pos of a file whose blocks are bsz bytes,
// relative to the file's first block. Blkno is the index of the block
// within the file, not a disk block number.
func MkByteAddr(pos uint64, bsz uint64) Addr {
	return MkAddr(pos/bsz, (pos%bsz)*8)
}

// MkBitAddr addresses bit n of a bitmap that starts at block start.
func MkBitAddr(start common.Bnum, n uint64, bsz uint64) Addr {
	nbit := bsz * 8
	bit := n % nbit
	i := n / nbit
	return MkAddr(start+common.Bnum(i), bit)
}
