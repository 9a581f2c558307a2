package utils

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain ipv4", "203.0.113.7", "203.0.113.7", false},
		{"ipv4 with port", "203.0.113.7:51234", "203.0.113.7", false},
		{"ipv6 with brackets and port", "[2001:db8::1]:443", "2001:db8::1", false},
		{"ipv6 plain", "2001:db8::1", "2001:db8::1", false},
		{"whitespace", "  203.0.113.7 ", "203.0.113.7", false},
		{"garbage", "not-an-ip", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeIP(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientIP(t *testing.T) {
	t.Run("remote addr only", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "203.0.113.7:51234"
		r.Header.Set("X-Forwarded-For", "198.51.100.1")

		ip, err := ClientIP(r, false)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("forwarded for trusted", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "203.0.113.7:51234"
		r.Header.Set("X-Forwarded-For", "garbage, 198.51.100.1")

		ip, err := ClientIP(r, true)
		require.NoError(t, err)
		assert.Equal(t, "198.51.100.1", ip)
	})

	t.Run("forwarded for absent falls back", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "203.0.113.7:51234"

		ip, err := ClientIP(r, true)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", ip)
	})
}

func TestDecodeValidate(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required"`
	}

	t.Run("valid", func(t *testing.T) {
		var b body
		err := DecodeValidate(io.NopCloser(strings.NewReader(`{"email":"a@b.c"}`)), &b)
		require.NoError(t, err)
		assert.Equal(t, "a@b.c", b.Email)
	})

	t.Run("invalid json", func(t *testing.T) {
		var b body
		assert.Error(t, DecodeValidate(io.NopCloser(strings.NewReader(`{bad`)), &b))
	})

	t.Run("missing required", func(t *testing.T) {
		var b body
		assert.Error(t, DecodeValidate(io.NopCloser(strings.NewReader(`{}`)), &b))
	})
}
