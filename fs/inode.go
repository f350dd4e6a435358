package fs

import (
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-bareos/addr"
	"github.com/mit-pdos/go-bareos/buf"
	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/disk"
)

// InodeSize is the encoded size of an inode, in bytes.
const InodeSize uint64 = 8 * (2 + common.INODEBLOCKS)

// An Inode lives at the start of its own block; Id is that block's number.
// Unused entries of Blocks hold common.EMPTY.
type Inode struct {
	Id     common.Bnum
	Size   uint64
	Blocks []common.Bnum
}

func mkInode(id common.Bnum) Inode {
	ino := Inode{Id: id, Size: 0, Blocks: make([]common.Bnum, common.INODEBLOCKS)}
	for i := range ino.Blocks {
		ino.Blocks[i] = common.EMPTY
	}
	return ino
}

func (ino Inode) encode() []byte {
	enc := marshal.NewEnc(InodeSize)
	enc.PutInt(ino.Id)
	enc.PutInt(ino.Size)
	enc.PutInts(ino.Blocks)
	return enc.Finish()
}

func decodeInode(b []byte) Inode {
	ino := Inode{}
	dec := marshal.NewDec(b)
	ino.Id = dec.GetInt()
	ino.Size = dec.GetInt()
	ino.Blocks = dec.GetInts(common.INODEBLOCKS)
	return ino
}

func readInode(d disk.Disk, id common.Bnum) (Inode, error) {
	b, err := buf.ReadDirect(d, addr.MkAddr(id, 0), InodeSize*8)
	if err != nil {
		return Inode{}, err
	}
	return decodeInode(b.Data), nil
}

func writeInode(d disk.Disk, ino Inode) error {
	b := buf.MkBuf(addr.MkAddr(ino.Id, 0), InodeSize*8, ino.encode())
	return b.WriteDirect(d)
}

// NumBlocks counts the allocated entries of Blocks.
func (ino Inode) NumBlocks() uint64 {
	var n uint64
	for _, b := range ino.Blocks {
		if b != common.EMPTY {
			n++
		}
	}
	return n
}
