package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/config"
	"github.com/mit-pdos/go-bareos/util"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bareos",
	Short: "Single-CPU teaching kernel with a flat filesystem",
	Long: `bareos boots a small cooperative kernel (threads, a priority
scheduler, a tick-driven sleep list, a first-fit heap and a flat
filesystem) on top of a ramdisk or a disk image, and runs a shell in
its first thread.

Commands:
  boot    Boot the kernel and run the shell
  mkfs    Format a disk image
  ls      List the files on an image
  put     Copy a host file onto an image
  cat     Print a file from an image
  rm      Delete a file from an image

Every setting can also come from a config file (--config) or from an
environment variable such as BAREOS_NUM_BLOCKS.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c
		util.Debug = c.Debug
		return nil
	},
}

// bindFlag sets viper key from cmd's flag name when it is given.
func bindFlag(cmd *cobra.Command, key string, name string) {
	cobra.CheckErr(v.BindPFlag(key, cmd.Flags().Lookup(name)))
}

func bindPersistentFlag(cmd *cobra.Command, key string, name string) {
	cobra.CheckErr(v.BindPFlag(key, cmd.PersistentFlags().Lookup(name)))
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.StringP("image", "i", "", "disk image path (boot uses a ramdisk when empty)")
	flags.Uint64("debug", 1, "debug print level")
	flags.Uint64("block-size", common.BLOCKSIZE, "block size in bytes")
	flags.Uint64("num-blocks", common.NBLOCKS, "number of blocks on the device")

	bindPersistentFlag(rootCmd, "image", "image")
	bindPersistentFlag(rootCmd, "debug", "debug")
	bindPersistentFlag(rootCmd, "block_size", "block-size")
	bindPersistentFlag(rootCmd, "num_blocks", "num-blocks")
}
