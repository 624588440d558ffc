package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClientInfo(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		os      string
		browser string
		device  string
	}{
		{
			name:    "windows chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			os:      "Windows 10",
			browser: "Chrome",
			device:  "Escritorio",
		},
		{
			name:    "iphone safari",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			os:      "iOS",
			browser: "Safari",
			device:  "Móvil",
		},
		{
			name:    "android tablet",
			ua:      "Mozilla/5.0 (Linux; Android 13; SM-X200) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			os:      "Android",
			browser: "Chrome",
			device:  "Tablet",
		},
		{
			name:    "edge",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			os:      "Windows 10",
			browser: "Edge",
			device:  "Escritorio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseClientInfo("203.0.113.9", tt.ua, "es-ES,es;q=0.9", "1920x1080")
			assert.Equal(t, tt.os, info.OS)
			assert.Equal(t, tt.browser, info.Browser)
			assert.Equal(t, tt.device, info.DeviceType)
			assert.Equal(t, "es-ES", info.Language)
			assert.Equal(t, "1920x1080", info.ScreenResolution)
			assert.Equal(t, "203.0.113.9", info.IP)
		})
	}
}

func TestParseClientInfoDefaults(t *testing.T) {
	info := ParseClientInfo("198.51.100.1", "", "", "")
	assert.Equal(t, "Desconocido", info.UserAgent)
	assert.Equal(t, "Desconocido", info.OS)
	assert.Equal(t, "Desconocido", info.Browser)
	assert.Equal(t, "Desconocido", info.DeviceType)
	assert.Equal(t, "Desconocido", info.Language)
	assert.Equal(t, DefaultScreenResolution, info.ScreenResolution)
}
