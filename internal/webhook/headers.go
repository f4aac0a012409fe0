package webhook

import (
	"net/http"
	"net/textproto"
	"strings"
)

// forwardedHeaders is the allow-list of headers relayed downstream, in the
// casing written to the outbound request.
var forwardedHeaders = []string{
	"Accept",
	"Content-Type",
	"X-GitHub-Delivery",
	"X-GitHub-Event",
	"X-GitHub-Hook-ID",
	"X-GitHub-Hook-Installation-Target-ID",
	"X-GitHub-Hook-Installation-Target-Type",
	"X-Hub-Signature",
	"X-Hub-Signature-256",
}

// ForwardedHeaders returns the header allow-list.
func ForwardedHeaders() []string {
	return append([]string(nil), forwardedHeaders...)
}

// ProjectHeaders keeps only allow-listed headers from in, matched
// case-insensitively. Keys in the result use the allow-list casing and are
// not canonical, so read them by index rather than with Header.Get.
func ProjectHeaders(in http.Header) http.Header {
	out := make(http.Header, len(forwardedHeaders))
	for _, name := range forwardedHeaders {
		if values := lookupHeader(in, name); len(values) > 0 {
			out[name] = append([]string(nil), values...)
		}
	}
	return out
}

func lookupHeader(h http.Header, name string) []string {
	if values, ok := h[textproto.CanonicalMIMEHeaderKey(name)]; ok {
		return values
	}
	for key, values := range h {
		if strings.EqualFold(key, name) {
			return values
		}
	}
	return nil
}
