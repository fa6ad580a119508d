package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with password", "postgres://quant:secret@db:5432/quant", "postgres://quant:%2A%2A%2A@db:5432/quant"},
		{"no password", "postgres://quant@db:5432/quant", "postgres://quant@db:5432/quant"},
		{"no user", "postgres://db:5432/quant", "postgres://db:5432/quant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskPassword(tt.in))
			assert.NotContains(t, maskPassword(tt.in), "secret")
		})
	}
}
