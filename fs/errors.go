package fs

import "errors"

var (
	ErrExists      = errors.New("fs: file exists")
	ErrNotFound    = errors.New("fs: file not found")
	ErrAlreadyOpen = errors.New("fs: file is open")
	ErrDirFull     = errors.New("fs: directory full")
	ErrNoSpace     = errors.New("fs: no free blocks")
	ErrNoFd        = errors.New("fs: open file table full")
	ErrBadFd       = errors.New("fs: bad file descriptor")
	ErrFileTooBig  = errors.New("fs: file too big")
	ErrBadName     = errors.New("fs: bad file name")
	ErrBadGeometry = errors.New("fs: bad device geometry")
)
