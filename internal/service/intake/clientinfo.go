package intake

import (
	"strings"

	"github.com/ignite/leadfunnel/internal/domain"
)

// DefaultScreenResolution is stored when the device_res cookie is absent.
const DefaultScreenResolution = "No detectada"

type uaMatch struct {
	needle string
	label  string
}

// Order matters: the first needle found wins.
var (
	osMatches = []uaMatch{
		{"windows nt 10", "Windows 10"},
		{"windows nt 6.3", "Windows 8.1"},
		{"windows nt 6.1", "Windows 7"},
		{"windows", "Windows"},
		{"iphone", "iOS"},
		{"ipad", "iOS"},
		{"android", "Android"},
		{"mac os x", "macOS"},
		{"cros", "ChromeOS"},
		{"linux", "Linux"},
	}
	browserMatches = []uaMatch{
		{"edg/", "Edge"},
		{"opr/", "Opera"},
		{"samsungbrowser", "Samsung Internet"},
		{"firefox", "Firefox"},
		{"fxios", "Firefox"},
		{"crios", "Chrome"},
		{"chrome", "Chrome"},
		{"safari", "Safari"},
		{"msie", "Internet Explorer"},
		{"trident", "Internet Explorer"},
	}
)

// ParseClientInfo derives technical metadata from request headers. Unknown
// values are reported as "Desconocido".
func ParseClientInfo(ip, userAgent, acceptLanguage, deviceRes string) domain.ClientInfo {
	ua := strings.ToLower(userAgent)

	info := domain.ClientInfo{
		IP:               ip,
		UserAgent:        userAgent,
		OS:               firstMatch(ua, osMatches),
		Browser:          firstMatch(ua, browserMatches),
		DeviceType:       deviceType(ua),
		ScreenResolution: Sanitize(deviceRes),
		Language:         primaryLanguage(acceptLanguage),
	}
	if info.UserAgent == "" {
		info.UserAgent = "Desconocido"
	}
	if info.ScreenResolution == "" {
		info.ScreenResolution = DefaultScreenResolution
	}
	return info
}

func firstMatch(ua string, matches []uaMatch) string {
	for _, m := range matches {
		if strings.Contains(ua, m.needle) {
			return m.label
		}
	}
	return "Desconocido"
}

func deviceType(ua string) string {
	switch {
	case ua == "":
		return "Desconocido"
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "Tablet"
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return "Tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone"):
		return "Móvil"
	case strings.Contains(ua, "bot") || strings.Contains(ua, "spider") || strings.Contains(ua, "crawl"):
		return "Bot"
	default:
		return "Escritorio"
	}
}

// primaryLanguage returns the first tag of an Accept-Language header, e.g.
// "es-ES" for "es-ES,es;q=0.9,en;q=0.8".
func primaryLanguage(header string) string {
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	if i := strings.IndexByte(first, ';'); i >= 0 {
		first = strings.TrimSpace(first[:i])
	}
	if first == "" || first == "*" {
		return "Desconocido"
	}
	return Sanitize(first)
}
