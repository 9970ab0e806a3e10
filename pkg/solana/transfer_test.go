package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolToLamports(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   uint64
	}{
		{"one SOL", 1.0, 1_000_000_000},
		{"half SOL", 0.5, 500_000_000},
		{"one lamport", 0.000000001, 1},
		{"zero", 0, 0},
		{"float noise rounds to exact", 0.1 + 0.2, 300_000_000},
		{"eleven SOL hardcap", 11.0, 11_000_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SolToLamports(tt.amount))
		})
	}
}
