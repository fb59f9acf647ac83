package request

import "strings"

type ClientType string

const (
	ClientWeb    ClientType = "web"
	ClientMobile ClientType = "mobile"
	ClientAPI    ClientType = "api"
)

// ResolveClientType prefers the explicit X-Client-Type header and falls back
// to a User-Agent sniff. Web clients get tokens via httpOnly cookies; mobile
// and API clients read them from the response body.
func ResolveClientType(header, userAgent string) ClientType {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "web":
		return ClientWeb
	case "mobile":
		return ClientMobile
	case "api":
		return ClientAPI
	}

	ua := strings.ToLower(userAgent)
	if strings.Contains(ua, "mozilla") || strings.Contains(ua, "chrome") || strings.Contains(ua, "safari") {
		return ClientWeb
	}
	return ClientAPI
}

func IsWebClient(t ClientType) bool {
	return t == ClientWeb
}
