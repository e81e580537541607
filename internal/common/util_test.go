package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray(t *testing.T) {
	b := []byte("hunter22")
	WipeByteArray(b)
	assert.Equal(t, make([]byte, 8), b)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
