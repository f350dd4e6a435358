// Package fs implements a flat, single-directory filesystem over a block
// device.
//
// Block 0 holds the superblock (device geometry and the root directory),
// block 1 the freemask, and every other block is either an inode or file
// data. A file is one inode block plus up to INODEBLOCKS data blocks.
package fs

import (
	"fmt"

	"github.com/mit-pdos/go-bareos/alloc"
	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/disk"
	"github.com/mit-pdos/go-bareos/util"
)

const (
	fstateClosed uint64 = 0
	fstateOpen   uint64 = 1
)

type openFile struct {
	state    uint64
	direntry uint64
	inode    Inode
	head     uint64
}

type FS struct {
	d    disk.Disk
	sb   *superblock
	mask *alloc.Alloc
	oft  []openFile
}

// DirEntry describes a live directory entry.
type DirEntry struct {
	Slot       uint64
	Name       string
	InodeBlock common.Bnum
	Size       uint64
}

// Mount loads the filesystem that Mkfs wrote to d.
func Mount(d disk.Disk) (*FS, error) {
	blocksz, nblocks, err := geometry(d)
	if err != nil {
		return nil, err
	}
	sb, err := readSuper(d)
	if err != nil {
		return nil, err
	}
	if sb.blocksz != blocksz || sb.nblocks != nblocks {
		return nil, fmt.Errorf("%w: superblock says %d blocks of %d bytes, device has %d of %d",
			ErrBadGeometry, sb.nblocks, sb.blocksz, nblocks, blocksz)
	}
	mask, err := readFreemask(d, nblocks)
	if err != nil {
		return nil, err
	}
	fs := &FS{
		d:    d,
		sb:   sb,
		mask: mask,
		oft:  make([]openFile, common.NUMFD),
	}
	util.DPrintf(1, "fs: mounted, %d files, %d free blocks\n", sb.numentries, mask.NumFree())
	return fs, nil
}

// Unmount closes every open file and flushes the superblock and freemask.
func (fs *FS) Unmount() error {
	for fd := range fs.oft {
		if fs.oft[fd].state == fstateOpen {
			if err := fs.Close(fd); err != nil {
				return err
			}
		}
	}
	if err := fs.persist(); err != nil {
		return err
	}
	return fs.d.Barrier()
}

func (fs *FS) persist() error {
	if err := writeSuper(fs.d, fs.sb); err != nil {
		return err
	}
	return writeFreemask(fs.d, fs.mask)
}

func (fs *FS) BlockSize() uint64 {
	return fs.sb.blocksz
}

func (fs *FS) NumFree() uint64 {
	return fs.mask.NumFree()
}

func (fs *FS) IsBlockUsed(bn common.Bnum) bool {
	return fs.mask.IsUsed(bn)
}

// Freemask returns a copy of the in-memory freemask.
func (fs *FS) Freemask() []byte {
	return fs.mask.Bytes()
}

func checkName(name string) error {
	if len(name) == 0 || uint64(len(name)) >= common.FILENAMELEN {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return fmt.Errorf("%w: %q", ErrBadName, name)
		}
	}
	return nil
}

// lookup returns the directory slot holding name.
func (fs *FS) lookup(name string) (uint64, bool) {
	for i, e := range fs.sb.entries {
		if e.live() && e.name == name {
			return uint64(i), true
		}
	}
	return 0, false
}

func (fs *FS) openFd(slot uint64) (int, bool) {
	for fd, f := range fs.oft {
		if f.state == fstateOpen && f.direntry == slot {
			return fd, true
		}
	}
	return -1, false
}

// Create adds an empty file called name to the root directory. The file's
// inode takes the lowest free block.
func (fs *FS) Create(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if fs.sb.numentries >= common.DIRSIZE {
		return ErrDirFull
	}
	if _, ok := fs.lookup(name); ok {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	slot := common.DIRSIZE
	for i, e := range fs.sb.entries {
		if !e.live() {
			slot = uint64(i)
			break
		}
	}
	if slot == common.DIRSIZE {
		return ErrDirFull
	}
	bn := fs.mask.AllocNum()
	if bn == 0 {
		return ErrNoSpace
	}

	fs.sb.entries[slot] = dirEntry{inodeBlock: bn, name: name}
	fs.sb.numentries++
	if err := writeInode(fs.d, mkInode(bn)); err != nil {
		return err
	}
	util.DPrintf(5, "fs: create %s slot %d inode %d\n", name, slot, bn)
	return fs.persist()
}

// Open returns a descriptor for name positioned at the start of the file.
// A file can be open through at most one descriptor.
func (fs *FS) Open(name string) (int, error) {
	slot, ok := fs.lookup(name)
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if _, open := fs.openFd(slot); open {
		return -1, fmt.Errorf("%w: %s", ErrAlreadyOpen, name)
	}
	for fd := range fs.oft {
		if fs.oft[fd].state != fstateClosed {
			continue
		}
		ino, err := readInode(fs.d, fs.sb.entries[slot].inodeBlock)
		if err != nil {
			return -1, err
		}
		fs.oft[fd] = openFile{
			state:    fstateOpen,
			direntry: slot,
			inode:    ino,
			head:     0,
		}
		util.DPrintf(5, "fs: open %s fd %d\n", name, fd)
		return fd, nil
	}
	return -1, ErrNoFd
}

func (fs *FS) file(fd int) (*openFile, error) {
	if fd < 0 || fd >= len(fs.oft) || fs.oft[fd].state != fstateOpen {
		return nil, fmt.Errorf("%w: %d", ErrBadFd, fd)
	}
	return &fs.oft[fd], nil
}

// Close writes fd's inode back and releases the descriptor.
func (fs *FS) Close(fd int) error {
	f, err := fs.file(fd)
	if err != nil {
		return err
	}
	if err := writeInode(fs.d, f.inode); err != nil {
		return err
	}
	f.state = fstateClosed
	return nil
}

// Delete removes name from the directory and frees its inode and data
// blocks. Open files cannot be deleted.
func (fs *FS) Delete(name string) error {
	slot, ok := fs.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if _, open := fs.openFd(slot); open {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, name)
	}
	ib := fs.sb.entries[slot].inodeBlock
	ino, err := readInode(fs.d, ib)
	if err != nil {
		return err
	}
	for _, bn := range ino.Blocks {
		if bn != common.EMPTY {
			fs.mask.FreeNum(bn)
		}
	}
	fs.mask.FreeNum(ib)
	fs.sb.entries[slot] = dirEntry{inodeBlock: common.EMPTY}
	fs.sb.numentries--
	util.DPrintf(5, "fs: delete %s slot %d\n", name, slot)
	return fs.persist()
}

func (fs *FS) stat(slot uint64) (Inode, error) {
	if fd, open := fs.openFd(slot); open {
		return fs.oft[fd].inode, nil
	}
	return readInode(fs.d, fs.sb.entries[slot].inodeBlock)
}

// Stat returns name's inode, as cached by its descriptor if it is open.
func (fs *FS) Stat(name string) (Inode, error) {
	slot, ok := fs.lookup(name)
	if !ok {
		return Inode{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fs.stat(slot)
}

// List returns the live directory entries in slot order.
func (fs *FS) List() ([]DirEntry, error) {
	var ents []DirEntry
	for i, e := range fs.sb.entries {
		if !e.live() {
			continue
		}
		ino, err := fs.stat(uint64(i))
		if err != nil {
			return nil, err
		}
		ents = append(ents, DirEntry{
			Slot:       uint64(i),
			Name:       e.name,
			InodeBlock: e.inodeBlock,
			Size:       ino.Size,
		})
	}
	return ents, nil
}

// NumEntries is the directory's live entry count.
func (fs *FS) NumEntries() uint64 {
	return fs.sb.numentries
}
