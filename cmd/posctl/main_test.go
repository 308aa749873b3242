package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInts(t *testing.T) {
	assert.Equal(t, []int{3, -1, 10}, parseInts(" 3, -1 ,x, ,10"))
	assert.Nil(t, parseInts(""))
}
