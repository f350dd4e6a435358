// Package config loads boot parameters from flags, the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/fs"
	"github.com/mit-pdos/go-bareos/heap"
	"github.com/mit-pdos/go-bareos/kernel"
)

var ErrInvalid = errors.New("config: invalid")

// EnvPrefix prefixes the environment variable for every key, as in
// BAREOS_HEAP_SIZE.
const EnvPrefix = "BAREOS"

type Config struct {
	Threads   uint64        `mapstructure:"threads"`
	HeapSize  uint64        `mapstructure:"heap_size"`
	Priority  int64         `mapstructure:"priority"`
	BlockSize uint64        `mapstructure:"block_size"`
	NumBlocks uint64        `mapstructure:"num_blocks"`
	Tick      time.Duration `mapstructure:"tick"`
	Debug     uint64        `mapstructure:"debug"`
	Image     string        `mapstructure:"image"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("threads", common.NTHREADS)
	v.SetDefault("heap_size", common.HEAPSIZE)
	v.SetDefault("priority", common.PRIORITY)
	v.SetDefault("block_size", common.BLOCKSIZE)
	v.SetDefault("num_blocks", common.NBLOCKS)
	v.SetDefault("tick", 10*time.Millisecond)
	v.SetDefault("debug", 1)
	v.SetDefault("image", "")
}

// Load reads v's config file, if one was set, and decodes every key. Flags
// bound to v take precedence over the environment, which takes precedence
// over the file.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Threads == 0 {
		return fmt.Errorf("%w: threads must be positive", ErrInvalid)
	}
	if c.HeapSize <= heap.HeaderSize {
		return fmt.Errorf("%w: heap_size %d cannot hold a block header", ErrInvalid, c.HeapSize)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("%w: tick %v", ErrInvalid, c.Tick)
	}
	if err := fs.CheckGeometry(c.BlockSize, c.NumBlocks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Params returns kernel parameters for c. The caller supplies the disk.
func (c Config) Params() kernel.Params {
	p := kernel.DefaultParams()
	p.Threads = c.Threads
	p.HeapSize = c.HeapSize
	p.Priority = c.Priority
	p.BlockSize = c.BlockSize
	p.NumBlocks = c.NumBlocks
	return p
}
