package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-bareos/disk"
	"github.com/mit-pdos/go-bareos/fs"
	"github.com/mit-pdos/go-bareos/shell"
)

var errNoImage = errors.New("no disk image given (use --image or BAREOS_IMAGE)")

// withImage mounts the configured image, runs fn and unmounts it.
func withImage(fn func(fsys *fs.FS) error) error {
	if cfg.Image == "" {
		return errNoImage
	}
	d, err := disk.NewFileDisk(cfg.Image, cfg.NumBlocks, cfg.BlockSize)
	if err != nil {
		return err
	}
	defer d.Close()
	fsys, err := fs.Mount(d)
	if err != nil {
		return err
	}
	err = fn(fsys)
	if uerr := fsys.Unmount(); err == nil {
		err = uerr
	}
	return err
}

var mkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Format a disk image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Image == "" {
			return errNoImage
		}
		d, err := disk.NewFileDisk(cfg.Image, cfg.NumBlocks, cfg.BlockSize)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := fs.Mkfs(d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d blocks of %d bytes\n",
			cfg.Image, cfg.NumBlocks, cfg.BlockSize)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the files on an image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(fsys *fs.FS) error {
			ents, err := fsys.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range ents {
				fmt.Fprintf(out, "%-32s %8d  inode %d\n", e.Name, e.Size, e.InodeBlock)
			}
			fmt.Fprintf(out, "%d files, %d free blocks\n", len(ents), fsys.NumFree())
			return nil
		})
	},
}

var putCmd = &cobra.Command{
	Use:   "put <name> [host-file]",
	Short: "Copy a host file (or stdin) onto an image",
	Long: `Copy a host file onto an image, replacing any file of the same name.

Examples:
  bareos put --image disk.img motd /etc/motd
  echo hi | bareos put --image disk.img greeting`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 2 {
			data, err = os.ReadFile(args[1])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}
		return withImage(func(fsys *fs.FS) error {
			err := fsys.Delete(args[0])
			if err != nil && !errors.Is(err, fs.ErrNotFound) {
				return err
			}
			return shell.AppendFile(fsys, args[0], data)
		})
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <name>",
	Short: "Print a file from an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(fsys *fs.FS) error {
			data, err := shell.ReadFile(fsys, args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a file from an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(fsys *fs.FS) error {
			return fsys.Delete(args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(mkfsCmd, lsCmd, putCmd, catCmd, rmCmd)
}
