package resources

import (
	"path"
	"strings"
)

// Built-in resources served for redirect targets missing from the loaded
// distribution.  Binary bodies are kept base64-encoded, which their content
// type states.
const (
	gif1x1   = "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"
	png1x1   = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
	svgEmpty = `<svg xmlns="http://www.w3.org/2000/svg"/>`
)

// fallback is a built-in resource body and content type.
type fallback struct {
	body        string
	contentType string
}

// fallbacksByMIME are the built-in resources keyed by MIME type.
var fallbacksByMIME = map[string]fallback{
	"application/javascript": {body: "", contentType: "application/javascript"},
	"application/json":       {body: "{}", contentType: "application/json"},
	"audio/mpeg":             {body: "", contentType: "audio/mpeg"},
	"image/gif":              {body: gif1x1, contentType: "image/gif;base64"},
	"image/png":              {body: png1x1, contentType: "image/png;base64"},
	"image/svg+xml":          {body: svgEmpty, contentType: "image/svg+xml"},
	"text/css":               {body: "", contentType: "text/css"},
	"text/html":              {body: "<!DOCTYPE html>", contentType: "text/html"},
	"text/plain":             {body: "", contentType: "text/plain"},
	"video/mp4":              {body: "", contentType: "video/mp4"},
}

// mimeByExt maps file extensions and well-known noop names to MIME types.
var mimeByExt = map[string]string{
	"css":           "text/css",
	"gif":           "image/gif",
	"htm":           "text/html",
	"html":          "text/html",
	"js":            "application/javascript",
	"json":          "application/json",
	"mp3":           "audio/mpeg",
	"mp4":           "video/mp4",
	"png":           "image/png",
	"svg":           "image/svg+xml",
	"txt":           "text/plain",
	"noopcss":       "text/css",
	"noopframe":     "text/html",
	"noopjs":        "application/javascript",
	"noopjson":      "application/json",
	"nooptext":      "text/plain",
	"noopmp3-0.1s":  "audio/mpeg",
	"noopmp4-1s":    "video/mp4",
	"empty":         "text/plain",
	"click2load":    "text/html",
	"noop.html":     "text/html",
	"noop-0.1s.mp3": "audio/mpeg",
}

// fallbackResource returns a built-in resource for name, which can be a MIME
// type, a file name or a noop resource name.  Unknown names get an empty
// text resource.
func fallbackResource(name string) (body, contentType string) {
	mime := name
	if !strings.Contains(name, "/") {
		mime = mimeByExt[name]
		if mime == "" {
			mime = mimeByExt[strings.TrimPrefix(path.Ext(name), ".")]
		}
	}

	f, ok := fallbacksByMIME[mime]
	if !ok {
		f = fallbacksByMIME["text/plain"]
	}

	return f.body, f.contentType
}
