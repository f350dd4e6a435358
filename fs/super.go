package fs

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-bareos/addr"
	"github.com/mit-pdos/go-bareos/alloc"
	"github.com/mit-pdos/go-bareos/buf"
	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/disk"
	"github.com/mit-pdos/go-bareos/util"
)

// Superblock layout: four header words, the inode block of every directory
// slot, then every slot's name as FILENAMELEN NUL-padded bytes.
const (
	superHdrSize  uint64 = 4 * 8
	superNameOff  uint64 = superHdrSize + common.DIRSIZE*8
	SuperblockLen uint64 = superNameOff + common.DIRSIZE*common.FILENAMELEN
)

type dirEntry struct {
	inodeBlock common.Bnum
	name       string
}

func (e dirEntry) live() bool {
	return e.inodeBlock != common.EMPTY
}

type superblock struct {
	blocksz    uint64
	nblocks    uint64
	freemasksz uint64
	numentries uint64
	entries    []dirEntry
}

func mkSuperblock(blocksz uint64, nblocks uint64) *superblock {
	sb := &superblock{
		blocksz:    blocksz,
		nblocks:    nblocks,
		freemasksz: util.RoundUp(nblocks, 8),
		numentries: 0,
		entries:    make([]dirEntry, common.DIRSIZE),
	}
	for i := range sb.entries {
		sb.entries[i].inodeBlock = common.EMPTY
	}
	return sb
}

func (sb *superblock) encode() []byte {
	enc := marshal.NewEnc(SuperblockLen)
	enc.PutInt(sb.blocksz)
	enc.PutInt(sb.nblocks)
	enc.PutInt(sb.freemasksz)
	enc.PutInt(sb.numentries)
	blocks := make([]uint64, common.DIRSIZE)
	for i, e := range sb.entries {
		blocks[i] = e.inodeBlock
	}
	enc.PutInts(blocks)
	b := enc.Finish()
	for i, e := range sb.entries {
		off := superNameOff + uint64(i)*common.FILENAMELEN
		copy(b[off:off+common.FILENAMELEN], e.name)
	}
	return b
}

func decodeSuperblock(b []byte) *superblock {
	sb := &superblock{}
	dec := marshal.NewDec(b)
	sb.blocksz = dec.GetInt()
	sb.nblocks = dec.GetInt()
	sb.freemasksz = dec.GetInt()
	sb.numentries = dec.GetInt()
	blocks := dec.GetInts(common.DIRSIZE)
	sb.entries = make([]dirEntry, common.DIRSIZE)
	for i := range sb.entries {
		off := superNameOff + uint64(i)*common.FILENAMELEN
		name := b[off : off+common.FILENAMELEN]
		n := 0
		for n < len(name) && name[n] != 0 {
			n++
		}
		sb.entries[i] = dirEntry{inodeBlock: blocks[i], name: string(name[:n])}
	}
	return sb
}

// CheckGeometry reports whether a device of nblocks blocks of blocksz bytes
// can hold a filesystem.
func CheckGeometry(blocksz uint64, nblocks uint64) error {
	if blocksz < SuperblockLen || blocksz < InodeSize {
		return fmt.Errorf("%w: %d-byte blocks cannot hold the superblock", ErrBadGeometry, blocksz)
	}
	if nblocks <= common.DATASTART {
		return fmt.Errorf("%w: %d blocks leaves no room for files", ErrBadGeometry, nblocks)
	}
	if nblocks > blocksz*8 {
		return fmt.Errorf("%w: freemask of %d blocks does not fit in one block", ErrBadGeometry, nblocks)
	}
	return nil
}

func geometry(d disk.Disk) (uint64, uint64, error) {
	nblocks, err := d.Size()
	if err != nil {
		return 0, 0, err
	}
	blocksz := d.BlockSize()
	if err := CheckGeometry(blocksz, nblocks); err != nil {
		return 0, 0, err
	}
	return blocksz, nblocks, nil
}

// Mkfs writes an empty filesystem onto d: a superblock with an empty root
// directory and a freemask with only the superblock and freemask in use.
func Mkfs(d disk.Disk) error {
	blocksz, nblocks, err := geometry(d)
	if err != nil {
		return err
	}
	sb := mkSuperblock(blocksz, nblocks)
	mask := alloc.MkAlloc(make([]byte, blocksz), nblocks)
	mask.MarkUsed(common.SUPERBLK)
	mask.MarkUsed(common.BMBLK)
	if err := writeSuper(d, sb); err != nil {
		return err
	}
	if err := writeFreemask(d, mask); err != nil {
		return err
	}
	util.DPrintf(1, "mkfs: %d blocks of %d bytes\n", nblocks, blocksz)
	return d.Barrier()
}

func writeSuper(d disk.Disk, sb *superblock) error {
	b := buf.MkBuf(addr.MkAddr(common.SUPERBLK, 0), SuperblockLen*8, sb.encode())
	if err := b.WriteDirect(d); err != nil {
		return fmt.Errorf("write superblock: %w", err)
	}
	return nil
}

func readSuper(d disk.Disk) (*superblock, error) {
	b, err := buf.ReadDirect(d, addr.MkAddr(common.SUPERBLK, 0), SuperblockLen*8)
	if err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	return decodeSuperblock(b.Data), nil
}

func writeFreemask(d disk.Disk, mask *alloc.Alloc) error {
	bm := mask.Bytes()
	b := buf.MkBuf(addr.MkAddr(common.BMBLK, 0), uint64(len(bm))*8, bm)
	if err := b.WriteDirect(d); err != nil {
		return fmt.Errorf("write freemask: %w", err)
	}
	return nil
}

func readFreemask(d disk.Disk, nblocks uint64) (*alloc.Alloc, error) {
	blk, err := d.Read(common.BMBLK)
	if err != nil {
		return nil, fmt.Errorf("read freemask: %w", err)
	}
	return alloc.MkAlloc(blk, nblocks), nil
}
