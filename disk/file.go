package disk

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-bareos/util"
)

var _ Disk = (*fileDisk)(nil)

// fileDisk stores the blocks of a disk image in a host file.
type fileDisk struct {
	fd        int
	numBlocks uint64
	blockSize uint64
}

// NewFileDisk opens (or creates) the image at path and sizes it to hold
// numBlocks blocks of blockSize bytes.
func NewFileDisk(path string, numBlocks uint64, blockSize uint64) (fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return fileDisk{}, fmt.Errorf("open %s: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return fileDisk{}, fmt.Errorf("stat %s: %w", path, err)
	}
	sz := numBlocks * blockSize
	if (stat.Mode&unix.S_IFREG) != 0 && uint64(stat.Size) != sz {
		err = unix.Ftruncate(fd, int64(sz))
		if err != nil {
			unix.Close(fd)
			return fileDisk{}, fmt.Errorf("truncate %s: %w", path, err)
		}
	}
	util.DPrintf(1, "filedisk: %s %d blocks of %d bytes\n", path, numBlocks, blockSize)
	return fileDisk{fd: fd, numBlocks: numBlocks, blockSize: blockSize}, nil
}

func (d fileDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != d.blockSize {
		panic("buffer is not block-sized")
	}
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	_, err := unix.Pread(d.fd, buf, int64(a*d.blockSize))
	if err != nil {
		return fmt.Errorf("read block %d: %w", a, err)
	}
	util.DPrintf(10, "filedisk: read %d\n", a)
	return nil
}

func (d fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, d.blockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d fileDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != d.blockSize {
		panic(fmt.Errorf("v is not block sized (%d bytes)", len(v)))
	}
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*d.blockSize))
	if err != nil {
		return fmt.Errorf("write block %d: %w", a, err)
	}
	util.DPrintf(10, "filedisk: write %d\n", a)
	return nil
}

func (d fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d fileDisk) BlockSize() uint64 {
	return d.blockSize
}

func (d fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	return nil
}

func (d fileDisk) Close() error {
	return unix.Close(d.fd)
}
