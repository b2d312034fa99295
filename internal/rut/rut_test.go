package rut

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12.345.678-5", true},
		{"12345678-5", true},
		{"7.654.321-6", true},
		{"6.000.000-k", true},
		{"6000000K", true},
		{"11.111.111-1", true},
		{"12.345.678-4", false},
		{"123.456-0", false}, // body too short
		{"123.456.789-0", false},
		{"", false},
		{"K", false},
		{"12K45678-5", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678-5", Format("123456785"))
	assert.Equal(t, "7.654.321-6", Format(" 7654321-6 "))
	assert.Equal(t, "6.000.000-K", Format("6000000k"))
	assert.Equal(t, "12.345.678-9", Format("1234567899"), "body is cut to eight digits")
	assert.Equal(t, "", Format("--"))
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, "5", CheckDigit("12345678"))
	assert.Equal(t, "K", CheckDigit("6000000"))
	assert.Equal(t, "8", CheckDigit("10000000"))
}
