package handlers

import (
	"contextguard/internal/fingerprint"

	"github.com/gin-gonic/gin"
)

// fingerprintFromRequest assembles the login context fingerprint from values
// resolved by the upstream proxy. Geo and user-agent resolution happen before
// the request reaches this service; absent values degrade to "unknown" so a
// stripped header can never alias someone else's context.
func fingerprintFromRequest(c *gin.Context) fingerprint.Fingerprint {
	return fingerprint.Fingerprint{
		IP:         c.ClientIP(),
		Country:    headerOrUnknown(c, "X-Geo-Country"),
		City:       headerOrUnknown(c, "X-Geo-City"),
		Browser:    headerOrUnknown(c, "X-Client-Browser"),
		Platform:   headerOrUnknown(c, "X-Client-Platform"),
		OS:         headerOrUnknown(c, "X-Client-Os"),
		Device:     headerOrUnknown(c, "X-Client-Device"),
		DeviceType: headerOrUnknown(c, "X-Client-Device-Type"),
	}
}

func headerOrUnknown(c *gin.Context, name string) string {
	if v := c.GetHeader(name); v != "" {
		return v
	}
	return "unknown"
}
