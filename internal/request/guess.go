package request

import (
	"path"
	"strings"
)

// extensionTypes maps file extensions to the resource type they usually
// denote.
var extensionTypes = map[string]Type{
	".js":    TypeScript,
	".mjs":   TypeScript,
	".css":   TypeStylesheet,
	".html":  TypeSubFrame,
	".htm":   TypeSubFrame,
	".php":   TypeSubFrame,
	".gif":   TypeImage,
	".png":   TypeImage,
	".jpg":   TypeImage,
	".jpeg":  TypeImage,
	".webp":  TypeImage,
	".svg":   TypeImage,
	".ico":   TypeImage,
	".avif":  TypeImage,
	".bmp":   TypeImage,
	".woff":  TypeFont,
	".woff2": TypeFont,
	".ttf":   TypeFont,
	".otf":   TypeFont,
	".eot":   TypeFont,
	".mp3":   TypeMedia,
	".mp4":   TypeMedia,
	".m4a":   TypeMedia,
	".ogg":   TypeMedia,
	".webm":  TypeMedia,
	".wav":   TypeMedia,
	".m3u8":  TypeMedia,
	".json":  TypeXHR,
	".xml":   TypeXHR,
	".swf":   TypeObject,
}

// GuessTypeFromURL infers a request type from the extension of the URL path.
// URLs without a known extension are reported as TypeOther.
func GuessTypeFromURL(rawURL string) (t Type) {
	if strings.HasPrefix(rawURL, "ws:") || strings.HasPrefix(rawURL, "wss:") {
		return TypeWebSocket
	} else if strings.HasPrefix(rawURL, "data:") {
		return guessDataType(rawURL[len("data:"):])
	}

	p := rawURL
	if i := strings.Index(p, "://"); i != -1 {
		p = p[i+3:]
		if j := strings.IndexByte(p, '/'); j != -1 {
			p = p[j:]
		} else {
			p = "/"
		}
	}

	if i := strings.IndexAny(p, "?#"); i != -1 {
		p = p[:i]
	}

	if t, ok := extensionTypes[strings.ToLower(path.Ext(p))]; ok {
		return t
	}

	return TypeOther
}

// guessDataType guesses the type of a data: URL from its MIME type.
func guessDataType(rest string) (t Type) {
	switch {
	case strings.HasPrefix(rest, "image/"):
		return TypeImage
	case strings.HasPrefix(rest, "text/css"):
		return TypeStylesheet
	case strings.HasPrefix(rest, "text/javascript"), strings.HasPrefix(rest, "application/javascript"):
		return TypeScript
	case strings.HasPrefix(rest, "audio/"), strings.HasPrefix(rest, "video/"):
		return TypeMedia
	case strings.HasPrefix(rest, "font/"):
		return TypeFont
	case strings.HasPrefix(rest, "text/html"):
		return TypeSubFrame
	default:
		return TypeOther
	}
}
