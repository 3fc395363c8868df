package filters

import (
	"math/bits"

	"github.com/bnema/adblock-engine/internal/request"
)

// NetworkMask is the set of boolean facets of a network filter.
type NetworkMask uint32

// NetworkMask bits.  The layout is part of the serialization format.
const (
	FromDocument NetworkMask = 1 << iota
	FromFont
	FromHTTP
	FromHTTPS
	FromImage
	FromMedia
	FromObject
	FromOther
	FromPing
	FromScript
	FromStylesheet
	FromSubdocument
	FromWebsocket
	FromXMLHTTPRequest

	FirstParty
	ThirdParty

	IsReplace
	IsBadFilter
	IsCSP
	IsGenericHide
	IsImportant
	IsSpecificHide

	IsFullRegex
	IsRegex
	IsUnicode
	IsLeftAnchor
	IsRightAnchor
	IsException
	IsHostnameAnchor
	IsRedirectRule
	IsRedirect
)

// FromAny is the set of all content-type bits.
const FromAny = FromDocument | FromFont | FromImage | FromMedia | FromObject | FromOther |
	FromPing | FromScript | FromStylesheet | FromSubdocument | FromWebsocket | FromXMLHTTPRequest

// Has reports whether all bits of m2 are set in m.
func (m NetworkMask) Has(m2 NetworkMask) (ok bool) { return m&m2 == m2 }

// set returns m with m2 set or cleared.
func (m NetworkMask) set(m2 NetworkMask, value bool) (res NetworkMask) {
	if value {
		return m | m2
	}

	return m &^ m2
}

// requestTypeMasks maps request types to the content-type bit filters need
// to match them.
var requestTypeMasks = map[request.Type]NetworkMask{
	request.TypeBeacon:             FromPing,
	request.TypeDocument:           FromDocument,
	request.TypeCSPViolationReport: FromOther,
	request.TypeFetch:              FromXMLHTTPRequest,
	request.TypeFont:               FromFont,
	request.TypeImage:              FromImage,
	request.TypeImageSet:           FromImage,
	request.TypeMainFrameCamel:     FromDocument,
	request.TypeMainFrame:          FromDocument,
	request.TypeMedia:              FromMedia,
	request.TypeObject:             FromObject,
	request.TypeObjectSubrequest:   FromObject,
	request.TypePing:               FromPing,
	request.TypeScript:             FromScript,
	request.TypeStylesheet:         FromStylesheet,
	request.TypeSubFrameCamel:      FromSubdocument,
	request.TypeSubFrame:           FromSubdocument,
	request.TypeWebSocketCamel:     FromWebsocket,
	request.TypeWebSocket:          FromWebsocket,
	request.TypeXHR:                FromXMLHTTPRequest,
	request.TypeXMLHTTPRequest:     FromXMLHTTPRequest,
	request.TypeCSPReportCamel:     FromOther,
	request.TypeCSPReport:          FromOther,
	request.TypeEventSource:        FromOther,
	request.TypeManifest:           FromOther,
	request.TypeOther:              FromOther,
	request.TypePrefetch:           FromOther,
	request.TypePreflight:          FromOther,
	request.TypeSignedExchange:     FromOther,
	request.TypeSpeculative:        FromOther,
	request.TypeTextTrack:          FromOther,
	request.TypeWebManifest:        FromOther,
	request.TypeXMLDTD:             FromOther,
	request.TypeXSLT:               FromOther,
}

// cptOption is a content-type option name with its bit and the request type
// used for its index token.
type cptOption struct {
	name string
	typ  request.Type
	bit  NetworkMask
}

// cptOptions lists content types in the order used when printing filters and
// when dispatching type-only filters to index tokens.
var cptOptions = []cptOption{
	{name: "document", typ: request.TypeDocument, bit: FromDocument},
	{name: "image", typ: request.TypeImage, bit: FromImage},
	{name: "media", typ: request.TypeMedia, bit: FromMedia},
	{name: "object", typ: request.TypeObject, bit: FromObject},
	{name: "other", typ: request.TypeOther, bit: FromOther},
	{name: "ping", typ: request.TypePing, bit: FromPing},
	{name: "script", typ: request.TypeScript, bit: FromScript},
	{name: "stylesheet", typ: request.TypeStylesheet, bit: FromStylesheet},
	{name: "sub_frame", typ: request.TypeSubFrame, bit: FromSubdocument},
	{name: "websocket", typ: request.TypeWebSocket, bit: FromWebsocket},
	{name: "xhr", typ: request.TypeXHR, bit: FromXMLHTTPRequest},
	{name: "font", typ: request.TypeFont, bit: FromFont},
}

// cptOptionBits maps content-type option names, as written in filter lists,
// to their bit.
var cptOptionBits = map[string]NetworkMask{
	"image":             FromImage,
	"media":             FromMedia,
	"object":            FromObject,
	"object-subrequest": FromObject,
	"other":             FromOther,
	"ping":              FromPing,
	"beacon":            FromPing,
	"script":            FromScript,
	"css":               FromStylesheet,
	"stylesheet":        FromStylesheet,
	"frame":             FromSubdocument,
	"subdocument":       FromSubdocument,
	"xhr":               FromXMLHTTPRequest,
	"xmlhttprequest":    FromXMLHTTPRequest,
	"websocket":         FromWebsocket,
	"font":              FromFont,
	"doc":               FromDocument,
	"document":          FromDocument,
}

func bitCount(m NetworkMask) (n int) { return bits.OnesCount32(uint32(m)) }
