package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopCnt(t *testing.T) {
	assert.Equal(t, uint64(0), popCnt(0))
	assert.Equal(t, uint64(1), popCnt(1))
	assert.Equal(t, uint64(1), popCnt(2))
	assert.Equal(t, uint64(2), popCnt(3))
	assert.Equal(t, uint64(8), popCnt(255))
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a := MkMaxAlloc(max)

	assert.Equal(max-1, a.NumFree(), "everything (but 0) should be initially free")

	n := a.AllocNum()
	assert.NotEqual(uint64(0), n, "should not allocate 0")

	a.MarkUsed(n + 1)
	n2 := a.AllocNum()
	assert.NotEqual(n+1, n2, "should not allocate something marked used")

	assert.Equal(max-4, a.NumFree(), "should have used 4 items")

	a.FreeNum(n)
	a.FreeNum(n2)
	assert.Equal(max-2, a.NumFree(), "should have freed")
}

func TestFirstFit(t *testing.T) {
	assert := assert.New(t)
	a := MkMaxAlloc(16)
	a.MarkUsed(1)
	assert.Equal(uint64(2), a.AllocNum())
	assert.Equal(uint64(3), a.AllocNum())
	a.FreeNum(2)
	assert.Equal(uint64(2), a.AllocNum(), "lowest free number is reused first")
	assert.True(a.IsUsed(3))
	assert.False(a.IsUsed(4))
}

func TestFull(t *testing.T) {
	a := MkMaxAlloc(10)
	for i := 1; i < 10; i++ {
		assert.NotEqual(t, uint64(0), a.AllocNum())
	}
	assert.Equal(t, uint64(0), a.NumFree())
	assert.Equal(t, uint64(0), a.AllocNum(), "full map must report 0")
	assert.True(t, a.IsUsed(10), "numbers past max are never free")
}

func TestBytes(t *testing.T) {
	bm := make([]byte, 4)
	bm[0] = 0x3
	a := MkAlloc(bm, 32)
	assert.Equal(t, uint64(30), a.NumFree())
	assert.Equal(t, uint64(2), a.AllocNum())
	b := a.Bytes()
	assert.Equal(t, []byte{0x7, 0, 0, 0}, b)
	b[0] = 0
	assert.True(t, a.IsUsed(2), "Bytes must return a copy")
}
