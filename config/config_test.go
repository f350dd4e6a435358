package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-bareos/common"
)

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	c, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(common.NTHREADS, c.Threads)
	assert.Equal(common.HEAPSIZE, c.HeapSize)
	assert.Equal(common.PRIORITY, c.Priority)
	assert.Equal(common.BLOCKSIZE, c.BlockSize)
	assert.Equal(common.NBLOCKS, c.NumBlocks)
	assert.Equal(10*time.Millisecond, c.Tick)
	assert.Equal(uint64(1), c.Debug)
	assert.Equal("", c.Image)
}

func TestEnv(t *testing.T) {
	t.Setenv("BAREOS_THREADS", "4")
	t.Setenv("BAREOS_HEAP_SIZE", "4096")
	t.Setenv("BAREOS_TICK", "1ms")
	c, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.Threads)
	assert.Equal(t, uint64(4096), c.HeapSize)
	assert.Equal(t, time.Millisecond, c.Tick)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bareos.yaml")
	err := os.WriteFile(path, []byte("threads: 8\nnum_blocks: 64\nimage: disk.img\n"), 0644)
	require.NoError(t, err)

	t.Setenv("BAREOS_THREADS", "6")
	v := viper.New()
	v.SetConfigFile(path)
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), c.Threads, "environment should override the file")
	assert.Equal(t, uint64(64), c.NumBlocks)
	assert.Equal(t, "disk.img", c.Image)
}

func TestMissingFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestOverride(t *testing.T) {
	v := viper.New()
	v.Set("priority", 3)
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Priority)
	assert.Equal(t, int64(3), c.Params().Priority)
}

func TestValidate(t *testing.T) {
	base, err := Load(viper.New())
	require.NoError(t, err)
	assert.NoError(t, base.Validate())

	for name, mod := range map[string]func(*Config){
		"threads":     func(c *Config) { c.Threads = 0 },
		"heap":        func(c *Config) { c.HeapSize = 8 },
		"tick":        func(c *Config) { c.Tick = 0 },
		"small block": func(c *Config) { c.BlockSize = 128 },
		"few blocks":  func(c *Config) { c.NumBlocks = 2 },
		"big mask":    func(c *Config) { c.NumBlocks = c.BlockSize*8 + 1 },
	} {
		c := base
		mod(&c)
		assert.ErrorIs(t, c.Validate(), ErrInvalid, name)
	}
}
