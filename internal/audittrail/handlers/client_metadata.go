package handlers

import (
	"context"
	"strings"

	"github.com/mssola/useragent"

	"audittrail/internal/audittrail/models"
	"audittrail/pkg/requestcontext"
)

// ClientMetadataKey is the event data key the user-agent summary is stored under.
const ClientMetadataKey = "ClientMetadata"

// ClientMetadata adds a parsed user-agent summary to events recorded while
// serving a request.
type ClientMetadata struct {
	Base
}

func NewClientMetadata() *ClientMetadata { return &ClientMetadata{} }

func (*ClientMetadata) Create(ctx context.Context, cc *models.CreateContext) error {
	raw := requestcontext.UserAgent(ctx)
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()

	if cc.EventData == nil {
		cc.EventData = make(map[string]any)
	}
	cc.EventData[ClientMetadataKey] = map[string]any{
		"device":          DeviceName(raw),
		"browser":         browser,
		"browser_version": version,
		"os":              ua.OS(),
		"mobile":          ua.Mobile(),
		"bot":             ua.Bot(),
	}
	return nil
}

// DeviceName renders a short "<browser> on <platform>" label.
func DeviceName(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	platform := ua.OS()
	if p := ua.Platform(); p == "iPhone" || p == "iPad" {
		platform = p
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if platform == "" {
		platform = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + platform)
}
