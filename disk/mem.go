package disk

import (
	"fmt"
	"sync"

	"github.com/mit-pdos/go-bareos/util"
)

var _ Disk = (*memDisk)(nil)

// memDisk is a ramdisk. Its lock only guards against the host program
// reading blocks while the kernel writes them.
type memDisk struct {
	l         *sync.RWMutex
	blockSize uint64
	blocks    [][]byte
}

func NewMemDisk(numBlocks uint64) memDisk {
	return NewMemDiskSize(numBlocks, DefaultBlockSize)
}

func NewMemDiskSize(numBlocks uint64, blockSize uint64) memDisk {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return memDisk{l: new(sync.RWMutex), blockSize: blockSize, blocks: blocks}
}

func (d memDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != d.blockSize {
		panic("buffer is not block-sized")
	}
	d.l.RLock()
	defer d.l.RUnlock()
	if a >= uint64(len(d.blocks)) {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	copy(buf, d.blocks[a])
	util.DPrintf(10, "memdisk: read %d\n", a)
	return nil
}

func (d memDisk) Read(a uint64) (Block, error) {
	buf := make(Block, d.blockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d memDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != d.blockSize {
		panic(fmt.Errorf("v is not block-sized (%d bytes)", len(v)))
	}
	d.l.Lock()
	defer d.l.Unlock()
	if a >= uint64(len(d.blocks)) {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	copy(d.blocks[a], v)
	util.DPrintf(10, "memdisk: write %d\n", a)
	return nil
}

func (d memDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d memDisk) BlockSize() uint64 {
	return d.blockSize
}

func (d memDisk) Barrier() error { return nil }

func (d memDisk) Close() error { return nil }
