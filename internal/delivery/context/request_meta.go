package context

import (
	"net"
	"net/http"
	"strings"

	"bidhub/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// clientIPHeaders are consulted in order; proxies closer to the edge win.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Forwarded",
	"X-Client-IP",
	"Forwarded-For",
	"Forwarded",
}

// ClientIP resolves the caller address from proxy headers, then the socket.
func ClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" {
			continue
		}
		if header == "X-Forwarded-For" {
			first, _, _ := strings.Cut(value, ",")
			value = strings.TrimSpace(first)
		}
		if value != "" {
			return value
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// RequestMeta captures the device attributes of the current request.
func RequestMeta(c echo.Context) entity.RequestMeta {
	req := c.Request()

	return entity.RequestMeta{
		IP:        ClientIP(req),
		UserAgent: req.UserAgent(),
		RequestID: GetRequestID(c),
	}
}
