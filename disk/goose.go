package disk

import (
	"fmt"

	goose "github.com/tchajed/goose/machine/disk"
)

var _ Disk = gooseDisk{}

// gooseDisk adapts a goose disk, which reports no errors and has a fixed
// 4096-byte block size.
type gooseDisk struct {
	d goose.Disk
}

// NewGooseMemDisk returns a goose in-memory disk behind the Disk interface.
func NewGooseMemDisk(numBlocks uint64) gooseDisk {
	return gooseDisk{d: goose.NewMemDisk(numBlocks)}
}

// NewRamDisk returns an in-memory disk of numBlocks blocks. A disk with
// goose's block size is backed by a goose memory disk.
func NewRamDisk(numBlocks uint64, blockSize uint64) Disk {
	if blockSize == goose.BlockSize {
		return NewGooseMemDisk(numBlocks)
	}
	return NewMemDiskSize(numBlocks, blockSize)
}

func (d gooseDisk) Read(a uint64) (Block, error) {
	return d.d.Read(a), nil
}

func (d gooseDisk) ReadTo(a uint64, b Block) error {
	if uint64(len(b)) != goose.BlockSize {
		panic(fmt.Errorf("buffer is not block-sized (%d bytes)", len(b)))
	}
	copy(b, d.d.Read(a))
	return nil
}

func (d gooseDisk) Write(a uint64, v Block) error {
	d.d.Write(a, v)
	return nil
}

func (d gooseDisk) Size() (uint64, error) {
	return d.d.Size(), nil
}

func (d gooseDisk) BlockSize() uint64 {
	return goose.BlockSize
}

func (d gooseDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d gooseDisk) Close() error {
	if c, ok := d.d.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
