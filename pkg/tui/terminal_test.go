package tui

import "testing"

func TestColumnWidth(t *testing.T) {
	tests := []struct {
		width, cols, want int
	}{
		{80, 6, 12},
		{200, 4, 47},
		{400, 2, 60},
		{80, 0, 60},
	}
	for _, tt := range tests {
		got := TerminalInfo{Width: tt.width}.ColumnWidth(tt.cols)
		if got != tt.want {
			t.Errorf("ColumnWidth(%d over %d) = %d, want %d", tt.width, tt.cols, got, tt.want)
		}
	}
}
