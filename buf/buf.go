// buf manages byte ranges of disk blocks, so that partial block reads and
// writes turn into whole-block disk operations.
package buf

import (
	"fmt"

	"github.com/mit-pdos/go-bareos/addr"
	"github.com/mit-pdos/go-bareos/disk"
	"github.com/mit-pdos/go-bareos/util"
)

// A Buf is a byte range of one disk block: a slice of a file block, an
// inode, or a whole block.
type Buf struct {
	Addr  addr.Addr
	Sz    uint64 // number of bits
	Data  []byte
	dirty bool // has this buf been written to?
}

func MkBuf(addr addr.Addr, sz uint64, data []byte) *Buf {
	b := &Buf{
		Addr:  addr,
		Sz:    sz,
		Data:  data,
		dirty: false,
	}
	return b
}

// Load the bits of a disk block into a new buf, as specified by addr
func MkBufLoad(addr addr.Addr, sz uint64, blk disk.Block) *Buf {
	bytefirst := addr.Off / 8
	bytelast := (addr.Off + sz - 1) / 8
	data := blk[bytefirst : bytelast+1]
	b := &Buf{
		Addr:  addr,
		Sz:    sz,
		Data:  data,
		dirty: false,
	}
	return b
}

// Install bytes from src to dst.
func installBytes(src []byte, dst []byte, dstoff uint64, nbit uint64) {
	sz := nbit / 8
	copy(dst[dstoff/8:], src[:sz])
}

// Install the bytes of buf into blk. Only byte-aligned ranges are supported.
func (buf *Buf) Install(blk disk.Block) {
	util.DPrintf(20, "%v: install\n", buf.Addr)
	if buf.Sz%8 != 0 || buf.Addr.Off%8 != 0 {
		panic("Install unsupported\n")
	}
	if (buf.Addr.Off+buf.Sz)/8 > uint64(len(blk)) {
		panic(fmt.Errorf("install of %d bits at %v overflows block", buf.Sz, buf.Addr))
	}
	installBytes(buf.Data, blk, buf.Addr.Off, buf.Sz)
}

// Load the bits of a disk block into buf, as specified by addr
func (buf *Buf) Load(sz uint64, blk disk.Block) {
	bytefirst := buf.Addr.Off / 8
	bytelast := (buf.Addr.Off + sz - 1) / 8
	buf.Sz = sz
	buf.Data = blk[bytefirst : bytelast+1]
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}

// WriteDirect writes buf to its block, reading the block first unless buf
// covers all of it.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	buf.SetDirty()
	blkno := uint64(buf.Addr.Blkno)
	if buf.Addr.Off == 0 && buf.Sz == d.BlockSize()*8 {
		return d.Write(blkno, buf.Data)
	}
	blk, err := d.Read(blkno)
	if err != nil {
		return err
	}
	buf.Install(blk)
	return d.Write(blkno, blk)
}

// ReadDirect reads sz bits at a from d into a new buf.
func ReadDirect(d disk.Disk, a addr.Addr, sz uint64) (*Buf, error) {
	blk, err := d.Read(uint64(a.Blkno))
	if err != nil {
		return nil, err
	}
	return MkBufLoad(a, sz, blk), nil
}
