package algorithm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountInversions(t *testing.T) {
	cases := []struct {
		name string
		data []uint32
		want int64
	}{
		{"empty", nil, 0},
		{"single", []uint32{1}, 0},
		{"sorted", []uint32{1, 2, 3, 4}, 0},
		{"reversed", []uint32{5, 4, 3, 2, 1}, 10},
		{"duplicates", []uint32{5, 5, 5}, 0},
		{"straggler", []uint32{3, 5, 9, 7, 4}, 4},
		{"article", []uint32{11, 2, 17, 16, 8, 6, 15, 10, 3, 21, 1, 18, 9, 14, 19, 12, 5, 4, 20, 13, 7}, 103},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountInversions(tc.data))
		})
	}
}

func TestCountInversionsKeepsInput(t *testing.T) {
	data := []int{3, 1, 2}
	assert.Equal(t, int64(2), CountInversions(data))
	assert.Equal(t, []int{3, 1, 2}, data)
}
