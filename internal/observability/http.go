package observability

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerDeviceID  = "X-Device-Id"
	headerRequestID = "X-Request-Id"

	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
)

func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get(headerDeviceID)
}

func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get(headerRequestID)
}

// IPFromRequest prefers the first X-Forwarded-For hop over the socket address.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestIDMiddleware makes sure every request carries an id. A client supplied
// X-Request-Id is kept, otherwise one is generated. The id is echoed back and
// stored under RequestIDKey.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := RequestIDFromRequest(c.Request)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(headerRequestID, id)
		}
		c.Set(RequestIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}
