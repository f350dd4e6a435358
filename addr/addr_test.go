package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteAddr(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(MkAddr(0, 0), MkByteAddr(0, 1024))
	assert.Equal(MkAddr(0, 1023*8), MkByteAddr(1023, 1024))
	assert.Equal(MkAddr(1, 0), MkByteAddr(1024, 1024))
	assert.Equal(MkAddr(2, 5*8), MkByteAddr(2053, 1024))
}

func TestBitAddr(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(MkAddr(1, 3), MkBitAddr(1, 3, 1024))
	assert.Equal(MkAddr(2, 0), MkBitAddr(1, 8192, 1024))
	a := MkBitAddr(1, 8200, 1024)
	assert.Equal(uint64(8192+8200), a.Flatid(1024))
}
