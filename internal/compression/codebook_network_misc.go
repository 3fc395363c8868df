package compression

var networkCSPCodebook = []string{
	"script-src 'self' 'unsafe-eval' http: https: data: blob: mediastream: filesystem:",
	"font-src 'self' 'unsafe-eval' http: https: data: blob: mediastream: filesystem:",
	"'unsafe-inline'", "'unsafe-eval'", "'self'", "'none'", "mediastream:", "filesystem:",
	"script-src", "style-src", "worker-src", "frame-src", "child-src", "img-src",
	"media-src", "font-src", "connect-src", "object-src", "default-src", "sandbox",
	"allow-scripts", "allow-same-origin", "upgrade-insecure-requests", "https:", "http:",
	"data:", "blob:", "wss:", "ws:", "*.", "; ", " ", ";", "'", "-", ".", ":", "/", "*",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
}

var networkRedirectCodebook = []string{
	"google-analytics_analytics.js", "googletagservices_gpt.js", "googlesyndication_adsbygoogle.js",
	"google-analytics_ga.js", "googletagmanager_gtm.js", "google-ima.js", "amazon_apstag.js",
	"scorecardresearch_beacon.js", "outbrain-widget.js", "doubleclick_instream_ad_status.js",
	"noop-vmap1.0.xml", "noop-vast2.xml", "noop-vast3.xml", "noop-vast4.xml",
	"noop-0.1s.mp3", "noop-1s.mp4", "noopmp3-0.1s", "noopmp4-1s", "noop.html", "noop.js",
	"noop.txt", "noopjs", "noopframe", "nooptext", "noop.css", "noop-", "noop", "none",
	"1x1.gif", "1x1-transparent.gif", "2x2.png", "2x2-transparent.png", "3x2.png",
	"32x32.png", "empty", "click2load.html", "fingerprint2.js", "_", ".js", ".html",
	".xml", ".txt", ".gif", ".png", ".mp3", ".mp4", ".json", ":", "-", ".",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
}

var networkHostnameCodebook = []string{
	"googlesyndication", "doubleclick", "googleapis", "googletagmanager", "google-analytics",
	"cloudfront", "amazonaws", "facebook", "analytics", "tracking", "tracker", "metrics",
	"smetrics", "telemetry", "adservice", "adserver", "adsystem", "advert", "affiliate",
	"banner", "beacon", "counter", "collect", "events", "pixel", "stats", "track", "media",
	"static", "images", "assets", "content", "click", "cdn", "api", "www", "ads", "log",
	"tag", "web", "app", "img", ".co.uk", ".com.br", ".com", ".net", ".org", ".info",
	".de", ".fr", ".ru", ".io", ".it", ".es", ".nl", ".pl", ".jp", ".cn", ".tv", ".me",
	".co", ".in", ".cc", ".xyz", ".top", ".site", ".online", ".club", ".pro", ".biz",
	".", "-",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
}
