package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/disk"
	"github.com/mit-pdos/go-bareos/fs"
	"github.com/mit-pdos/go-bareos/kernel"
	"github.com/mit-pdos/go-bareos/shell"
)

var bootFormat bool

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot the kernel and run the shell",
	Long: `Boot the kernel and run the shell on the console.

Examples:
  # Boot on a fresh ramdisk
  bareos boot

  # Boot on a ramdisk of 4096-byte blocks, backed by a goose disk
  bareos boot --block-size 4096

  # Boot on an image, formatting it first
  bareos boot --image disk.img --format`,
	Args: cobra.NoArgs,
	RunE: runBoot,
}

func init() {
	rootCmd.AddCommand(bootCmd)

	flags := bootCmd.Flags()
	flags.BoolVar(&bootFormat, "format", false, "format the image before booting")
	flags.Uint64("threads", common.NTHREADS, "thread table size")
	flags.Uint64("heap-size", common.HEAPSIZE, "kernel heap size in bytes")
	flags.Int64("priority", common.PRIORITY, "default thread priority")
	flags.Duration("tick", 10*time.Millisecond, "timer interrupt period")

	bindFlag(bootCmd, "threads", "threads")
	bindFlag(bootCmd, "heap_size", "heap-size")
	bindFlag(bootCmd, "priority", "priority")
	bindFlag(bootCmd, "tick", "tick")
}

// bootDisk opens the configured image. A nil disk means a ramdisk. An
// image that does not exist yet is always formatted.
func bootDisk() (disk.Disk, bool, error) {
	if cfg.Image == "" {
		return nil, true, nil
	}
	format := bootFormat
	if _, err := os.Stat(cfg.Image); errors.Is(err, os.ErrNotExist) {
		format = true
	}
	d, err := disk.NewFileDisk(cfg.Image, cfg.NumBlocks, cfg.BlockSize)
	if err != nil {
		return nil, false, err
	}
	return d, format, nil
}

func runBoot(cmd *cobra.Command, args []string) error {
	d, format, err := bootDisk()
	if err != nil {
		return err
	}
	p := cfg.Params()
	p.Disk = d
	p.Format = format
	k, err := kernel.New(p)
	if err != nil {
		if d != nil {
			d.Close()
		}
		if errors.Is(err, fs.ErrBadGeometry) {
			return fmt.Errorf("%w (format it with bareos mkfs or boot --format)", err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "bareOS %s: %d threads, %d free blocks\n",
		k.ID(), cfg.Threads, k.FS().NumFree())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	k.StartClock(ctx, cfg.Tick)

	sh := shell.New(cmd.InOrStdin(), cmd.OutOrStdout())
	ret, err := k.Run(ctx, sh.Main, nil)
	if serr := k.Shutdown(); err == nil {
		err = serr
	}
	if d != nil {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nshell exited with status %d\n", ret)
	return nil
}
