package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)
	bs := d.BlockSize()
	sz, err := d.Size()
	require.NoError(t, err)

	blk := Zero(d)
	for i := range blk {
		blk[i] = byte(i)
	}
	require.NoError(t, d.Write(sz-1, blk))
	require.NoError(t, d.Barrier())

	got, err := d.Read(sz - 1)
	require.NoError(t, err)
	assert.Equal(blk, got)

	other, err := d.Read(0)
	require.NoError(t, err)
	assert.Equal(make([]byte, bs), other, "neighboring block changed")

	to := make(Block, bs)
	require.NoError(t, d.ReadTo(sz-1, to))
	assert.Equal(blk, to)

	blk[0] = 0xff
	got, _ = d.Read(sz - 1)
	assert.Equal(byte(0), got[0], "disk aliases the written buffer")

	assert.Panics(func() { d.Write(sz, blk) })
	assert.Panics(func() { d.Write(0, blk[:bs-1]) })
}

func TestMemDisk(t *testing.T) {
	d := NewMemDisk(8)
	assert.Equal(t, DefaultBlockSize, d.BlockSize())
	checkReadWrite(t, d)
}

func TestMemDiskBlockSize(t *testing.T) {
	d := NewMemDiskSize(4, 512)
	assert.Equal(t, uint64(512), d.BlockSize())
	checkReadWrite(t, d)
}

func TestFileDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := NewFileDisk(path, 8, DefaultBlockSize)
	require.NoError(t, err)
	checkReadWrite(t, d)
	require.NoError(t, d.Close())

	d, err = NewFileDisk(path, 8, DefaultBlockSize)
	require.NoError(t, err)
	defer d.Close()
	blk, err := d.Read(7)
	require.NoError(t, err)
	assert.Equal(t, byte(1), blk[1], "contents did not survive reopen")
}

func TestGooseDisk(t *testing.T) {
	d := NewGooseMemDisk(4)
	sz, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), sz)

	blk := Zero(d)
	blk[10] = 7
	require.NoError(t, d.Write(2, blk))
	got, err := d.Read(2)
	require.NoError(t, err)
	assert.Equal(t, blk, got)
	require.NoError(t, d.Close())
}

func TestRamDisk(t *testing.T) {
	d := NewRamDisk(4, 4096)
	assert.IsType(t, gooseDisk{}, d, "goose-sized ramdisk")
	assert.Equal(t, uint64(4096), d.BlockSize())
	blk := Zero(d)
	blk[4095] = 9
	require.NoError(t, d.Write(3, blk))
	got, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(t, blk, got)

	d = NewRamDisk(4, DefaultBlockSize)
	assert.IsType(t, memDisk{}, d)
	assert.Equal(t, DefaultBlockSize, d.BlockSize())
	checkReadWrite(t, d)
}
