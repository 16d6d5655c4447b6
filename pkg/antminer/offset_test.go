package antminer

import "testing"

func TestResolveBoardOffset(t *testing.T) {
	cases := []struct {
		name  string
		stats map[string]any
		want  int
	}{
		{
			name:  "range starting at 1",
			stats: map[string]any{"chain_acn1": 63.0, "chain_acn2": 63.0, "chain_acn3": 63.0},
			want:  1,
		},
		{
			name:  "range starting at 6",
			stats: map[string]any{"chain_acn6": 63.0, "chain_acn7": 63.0, "chain_acn8": 63.0},
			want:  6,
		},
		{
			name:  "range starting at 11",
			stats: map[string]any{"chain_acn11": 63.0, "chain_acn12": 63.0, "chain_acn13": 63.0},
			want:  11,
		},
		{
			name:  "partially populated range",
			stats: map[string]any{"chain_acn11": 0.0, "chain_acn12": 63.0},
			want:  11,
		},
		{
			name:  "all zero falls back to default",
			stats: map[string]any{"chain_acn1": 0.0, "chain_acn6": 0.0, "chain_acn11": 0.0},
			want:  1,
		},
		{
			name:  "empty map falls back to default",
			stats: map[string]any{},
			want:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveBoardOffset(tc.stats); got != tc.want {
				t.Errorf("resolveBoardOffset = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestResolveFanOffset(t *testing.T) {
	cases := []struct {
		name  string
		stats map[string]any
		want  int
	}{
		{
			name:  "fans at 3",
			stats: map[string]any{"fan3": 4440.0, "fan4": 4560.0},
			want:  3,
		},
		{
			name:  "fans at 7",
			stats: map[string]any{"fan7": 4440.0, "fan8": 4560.0},
			want:  7,
		},
		{
			name:  "all zero falls back to default",
			stats: map[string]any{"fan3": 0.0, "fan7": 0.0},
			want:  3,
		},
		{
			name:  "empty map falls back to default",
			stats: map[string]any{},
			want:  3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveFanOffset(tc.stats); got != tc.want {
				t.Errorf("resolveFanOffset = %d, want %d", got, tc.want)
			}
		})
	}
}
