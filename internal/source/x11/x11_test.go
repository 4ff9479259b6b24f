package x11

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertBGRx(t *testing.T) {
	src := []byte{
		1, 2, 3, 0xff,
		10, 20, 30, 0,
	}
	dst := make([]byte, 6)

	ConvertBGRx(dst, src, 2, 1)
	assert.Equal(t, []byte{3, 2, 1, 30, 20, 10}, dst)
}

func TestConvertBGRx_ShortSource(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := []byte{9, 9, 9, 9, 9, 9}

	ConvertBGRx(dst, src, 2, 1)
	assert.Equal(t, []byte{3, 2, 1, 9, 9, 9}, dst)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1920, clamp(0, 1920))
	assert.Equal(t, 1920, clamp(4000, 1920))
	assert.Equal(t, 640, clamp(640, 1920))
}
