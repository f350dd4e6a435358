package fs

import (
	"github.com/mit-pdos/go-bareos/addr"
	"github.com/mit-pdos/go-bareos/buf"
	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/util"
)

// Read copies bytes forward from fd's head into p, stopping at the end of
// the file, and advances the head past them.
func (fs *FS) Read(fd int, p []byte) (int, error) {
	f, err := fs.file(fd)
	if err != nil {
		return 0, err
	}
	bsz := fs.sb.blocksz
	var n uint64
	want := uint64(len(p))
	for n < want && f.head < f.inode.Size {
		a := addr.MkByteAddr(f.head, bsz)
		off := a.Off / 8
		cnt := util.Min(bsz-off, want-n)
		cnt = util.Min(cnt, f.inode.Size-f.head)
		bn := f.inode.Blocks[a.Blkno]
		if bn == common.EMPTY {
			// a hole inside the file reads as zeros
			for i := uint64(0); i < cnt; i++ {
				p[n+i] = 0
			}
		} else {
			b, err := buf.ReadDirect(fs.d, addr.MkAddr(bn, off*8), cnt*8)
			if err != nil {
				return int(n), err
			}
			copy(p[n:n+cnt], b.Data)
		}
		f.head += cnt
		n += cnt
	}
	util.DPrintf(10, "fs: read fd %d %d bytes head %d\n", fd, n, f.head)
	return int(n), nil
}

// Write copies p into the file at fd's head, allocating blocks as the head
// reaches unallocated ones. Every block allocated grows the file by a whole
// block; afterwards the size is at least the new head. The inode and the
// freemask are written back before Write returns, including when it stops
// early because the device is full or the file has no block slots left.
func (fs *FS) Write(fd int, p []byte) (int, error) {
	f, err := fs.file(fd)
	if err != nil {
		return 0, err
	}
	bsz := fs.sb.blocksz
	var n uint64
	var werr error
	want := uint64(len(p))
	for n < want {
		a := addr.MkByteAddr(f.head, bsz)
		if a.Blkno >= common.INODEBLOCKS {
			werr = ErrFileTooBig
			break
		}
		off := a.Off / 8
		cnt := util.Min(bsz-off, want-n)
		if f.inode.Blocks[a.Blkno] == common.EMPTY {
			bn := fs.mask.AllocNum()
			if bn == 0 {
				werr = ErrNoSpace
				break
			}
			f.inode.Blocks[a.Blkno] = bn
			f.inode.Size += bsz
		}
		b := buf.MkBuf(addr.MkAddr(f.inode.Blocks[a.Blkno], off*8), cnt*8, p[n:n+cnt])
		if err := b.WriteDirect(fs.d); err != nil {
			werr = err
			break
		}
		f.head += cnt
		n += cnt
	}
	if f.head > f.inode.Size {
		f.inode.Size = f.head
	}
	if err := writeInode(fs.d, f.inode); err != nil {
		return int(n), err
	}
	if err := writeFreemask(fs.d, fs.mask); err != nil {
		return int(n), err
	}
	util.DPrintf(10, "fs: write fd %d %d bytes head %d size %d\n", fd, n, f.head, f.inode.Size)
	return int(n), werr
}

// Seek moves fd's head to off, clamped to the file's size, and returns the
// new head.
func (fs *FS) Seek(fd int, off uint64) (uint64, error) {
	f, err := fs.file(fd)
	if err != nil {
		return 0, err
	}
	f.head = util.Min(off, f.inode.Size)
	return f.head, nil
}

// Inode returns the inode cached by fd.
func (fs *FS) Inode(fd int) (Inode, error) {
	f, err := fs.file(fd)
	if err != nil {
		return Inode{}, err
	}
	return f.inode, nil
}
