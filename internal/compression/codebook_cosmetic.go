package compression

var cosmeticSelectorCodebook = []string{
	"div[class^=\"", "div[class*=\"", "div[id^=\"", "div[id*=\"", "[class^=\"", "[class*=\"",
	"[id^=\"", "[id*=\"", "[href^=\"", "[href*=\"", "[data-", "[style", ":has-text(",
	":has(", ":not(", ":remove()", ":style(", ":upward(", ":xpath(", ":matches-css(",
	"display: none", "!important", "advertisement", "advertising", "sponsored", "newsletter",
	"container", "placeholder", "wrapper", "sidebar", "banner", "widget", "header", "footer",
	"content", "promo", "social", "popup", "modal", "overlay", "cookie", "consent", "notice",
	"google", "taboola", "outbrain", "adsbygoogle", "dfp", "gpt", "iframe", "script", "section",
	"article", "aside", "span", "div", "ins", "img", "> div", "> a", "a[href", "-ad-", "-ads",
	"-ad", "_ad", "ad-", "ads-", "ads_", "ad_", "-banner", "-container", "-wrapper", "-box",
	"-block", "-slot", "-top", "-bottom", "-left", "-right", "-widget", "-sidebar", "-inner",
	"-unit", "-label", "-item", "-wrap", "-link", "-text", "-title", "-image", "-area",
	"-space", "-zone", "-leaderboard", "-native", "-sticky", "-mobile", "-desktop", "-content",
	"-header", "-footer", "-post", "-main", "-list", "-holder", "-frame",
	"leaderboard", "skyscraper", "billboard", "rectangle", "interstitial", "sticky", "native",
	"mobile", "desktop", "slot", "unit", "label", "box", "block", "area", "zone", "space",
	"text", "title", "image", "item", "link", "wrap", "inner", "outer", "main", "post", "list",
	"top", "bottom", "left", "right", "center", "middle", "https://", "http://", ".com",
	"\"]", "\"]>", "]:", "\"],", "\")", "^=\"", "*=\"", "$=\"", "=\"", "#", ".", ",", " ",
	">", "+", "~", ":", "(", ")", "[", "]", "\"", "'", "=", "*", "^", "$", "-", "_", "/",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}

var rawCosmeticCodebook = []string{
	"##+js(set-constant, ", "##+js(aopr, ", "##+js(aopw, ", "##+js(acis, ", "##+js(nostif, ",
	"##+js(nowoif", "##+js(no-fetch-if, ", "##+js(no-xhr-if, ", "##+js(rmnt, ",
	"##+js(trusted-", "##+js(", "#@#+js(", "##^script:has-text(", "##^", "#@#", "##",
	"div[class^=\"", "div[class*=\"", "div[id^=\"", "div[id*=\"", "[class^=\"", "[class*=\"",
	"[id^=\"", "[id*=\"", "[href^=\"", "[href*=\"", "[data-", ":has-text(", ":has(",
	":not(", ":remove()", ":style(", ":upward(", ":xpath(", "display: none", "!important",
	"advertisement", "advertising", "sponsored", "newsletter", "container", "placeholder",
	"wrapper", "sidebar", "banner", "widget", "header", "footer", "content", "promo", "popup",
	"modal", "overlay", "cookie", "consent", "google", "taboola", "outbrain", "adsbygoogle",
	"iframe", "script", "section", "article", "aside", "span", "div", "ins", "img",
	".com,", ".net,", ".org,", ".de,", ".fr,", ".it,", ".es,", ".co.uk,", ".ru,", ".pl,",
	".com", ".net", ".org", ".de", ".fr", ".it", ".es", ".co.uk", ".ru", ".pl", ".io",
	".info", ".tv", ".me", ".jp", ".br", ".nl", ".be", ".ch", ".at", ".cz", ".in", ".to",
	"www.", "m.", "~", "-ad-", "-ads", "-ad", "_ad", "ad-", "ads-", "ads_", "ad_",
	"-banner", "-container", "-wrapper", "-box", "-block", "-slot", "-widget", "-sidebar",
	"-unit", "-label", "-item", "-wrap", "-link", "-text", "-title", "-image", "-area",
	"true", "false", "noopFunc", "trueFunc", "falseFunc", "undefined", "null", "window.",
	"document.", "setTimeout", "setInterval", "addEventListener", "location.", "navigator.",
	"https://", "http://", "\"]", "\")", "^=\"", "*=\"", "=\"", "#", ".", ",", " ", ">",
	"+", ":", "(", ")", "[", "]", "\"", "'", "=", "*", "^", "$", "-", "_", "/",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}
