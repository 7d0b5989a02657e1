package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligible(t *testing.T) {
	all := []Badge{
		{ID: "gold", XPRequired: 500},
		{ID: "first", XPRequired: 10},
		{ID: "bronze", XPRequired: 100},
	}

	got := Eligible(all, nil, 100)
	assert.Equal(t, []string{"first", "bronze"}, ids(got))

	got = Eligible(all, []string{"first"}, 1000)
	assert.Equal(t, []string{"bronze", "gold"}, ids(got))

	assert.Empty(t, Eligible(all, nil, 9))
}

func ids(bs []Badge) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}
