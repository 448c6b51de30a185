package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		total, page, limit int
		wantPages          int
	}{
		{"empty", 0, 1, 20, 0},
		{"exact", 40, 2, 20, 2},
		{"remainder", 41, 1, 20, 3},
		{"single", 1, 1, 100, 1},
		{"zero limit", 5, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.total, tt.page, tt.limit)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
		})
	}
}

func TestIdea_HasAudio(t *testing.T) {
	assert.False(t, (&Idea{}).HasAudio())
	assert.True(t, (&Idea{AudioKey: "recordings/2024/04/03/x.webm"}).HasAudio())
}
