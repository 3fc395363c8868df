package request

import "github.com/bnema/adblock-engine/internal/tokens"

// Type is the resource type of a request, using the names browsers report.
type Type string

// Type values.  Several browsers use different names for the same type, all
// of them are accepted.
const (
	TypeBeacon             Type = "beacon"
	TypeCSPReport          Type = "csp_report"
	TypeCSPReportCamel     Type = "cspReport"
	TypeCSPViolationReport Type = "cspviolationreport"
	TypeDocument           Type = "document"
	TypeEventSource        Type = "eventsource"
	TypeFetch              Type = "fetch"
	TypeFont               Type = "font"
	TypeImage              Type = "image"
	TypeImageSet           Type = "imageset"
	TypeMainFrame          Type = "main_frame"
	TypeMainFrameCamel     Type = "mainFrame"
	TypeManifest           Type = "manifest"
	TypeMedia              Type = "media"
	TypeObject             Type = "object"
	TypeObjectSubrequest   Type = "object_subrequest"
	TypeOther              Type = "other"
	TypePing               Type = "ping"
	TypePrefetch           Type = "prefetch"
	TypePreflight          Type = "preflight"
	TypeScript             Type = "script"
	TypeSignedExchange     Type = "signedexchange"
	TypeSpeculative        Type = "speculative"
	TypeStylesheet         Type = "stylesheet"
	TypeSubFrame           Type = "sub_frame"
	TypeSubFrameCamel      Type = "subFrame"
	TypeTextTrack          Type = "texttrack"
	TypeWebManifest        Type = "web_manifest"
	TypeWebSocket          Type = "websocket"
	TypeWebSocketCamel     Type = "webSocket"
	TypeXHR                Type = "xhr"
	TypeXMLDTD             Type = "xml_dtd"
	TypeXMLHTTPRequest     Type = "xmlhttprequest"
	TypeXSLT               Type = "xslt"
)

// normalizedTypeNames maps every known type to the name used to compute its
// index token.
var normalizedTypeNames = map[Type]string{
	TypeBeacon:             "beacon",
	TypeCSPReport:          "csp",
	TypeCSPReportCamel:     "csp",
	TypeCSPViolationReport: "cspviolationreport",
	TypeDocument:           "document",
	TypeEventSource:        "other",
	TypeFetch:              "xhr",
	TypeFont:               "font",
	TypeImage:              "image",
	TypeImageSet:           "image",
	TypeMainFrame:          "document",
	TypeMainFrameCamel:     "document",
	TypeManifest:           "other",
	TypeMedia:              "media",
	TypeObject:             "object",
	TypeObjectSubrequest:   "object",
	TypeOther:              "other",
	TypePing:               "ping",
	TypePrefetch:           "other",
	TypePreflight:          "preflight",
	TypeScript:             "script",
	TypeSignedExchange:     "signedexchange",
	TypeSpeculative:        "other",
	TypeStylesheet:         "stylesheet",
	TypeSubFrame:           "subdocument",
	TypeSubFrameCamel:      "subdocument",
	TypeTextTrack:          "other",
	TypeWebManifest:        "other",
	TypeWebSocket:          "websocket",
	TypeWebSocketCamel:     "websocket",
	TypeXHR:                "xhr",
	TypeXMLDTD:             "other",
	TypeXMLHTTPRequest:     "xhr",
	TypeXSLT:               "other",
}

// TypeToken returns the index token of t.  Unknown types share the token of
// "other".
func TypeToken(t Type) (tok uint32) {
	name, ok := normalizedTypeNames[t]
	if !ok {
		name = "other"
	}

	return tokens.FastHash("type:" + name)
}

// IsMainFrame reports whether t is a top-level document.
func (t Type) IsMainFrame() (ok bool) {
	return t == TypeMainFrame || t == TypeMainFrameCamel
}

// IsSubFrame reports whether t is an embedded document.
func (t Type) IsSubFrame() (ok bool) {
	return t == TypeSubFrame || t == TypeSubFrameCamel
}
