package compression

var rawNetworkCodebook = []string{
	",redirect=google-ima",
	"/js/sdkloader/ima3.j",
	"/wp-content/plugins/",
	",redirect-rule=noop",
	".actonservice.com^",
	".com^$third-party",
	"googlesyndication",
	"imasdk.googleapis",
	".cloudfront.net^",
	",redirect-rule=",
	"$script,domain=",
	",3p,denyallow=",
	",redirect=noop",
	"xmlhttprequest",
	"^$third-party",
	"||smetrics.",
	"third-party",
	"marketing.",
	"$document",
	"analytics",
	",domain=",
	"/assets/",
	"metrics.",
	"subdocum",
	"tracking",
	"$script",
	".co.uk",
	"$ghide",
	"a8clk.",
	"cookie",
	"google",
	"script",
	".com^",
	".xyz^",
	"$doma",
	"a8cv.",
	"click",
	"image",
	"media",
	"track",
	".com",
	".fr^",
	".gif",
	".jp^",
	".net",
	"/js/",
	"$doc",
	"$xhr",
	"stat",
	"www.",
	",1p",
	",3p",
	".io",
	".jp",
	".js",
	"app",
	"cdn",
	"ent",
	"new",
	"web",
	".b",
	".c",
	".d",
	".f",
	".h",
	".m",
	".n",
	".p",
	".s",
	".t",
	"@@",
	"/*",
	"/p",
	"||",
	"ab",
	"ac",
	"ad",
	"af",
	"ag",
	"ai",
	"ak",
	"al",
	"am",
	"an",
	"ap",
	"ar",
	"as",
	"at",
	"au",
	"av",
	"aw",
	"ax",
	"ay",
	"az",
	"be",
	"bi",
	"bo",
	"br",
	"ca",
	"ce",
	"ch",
	"ck",
	"cl",
	"ct",
	"cu",
	"de",
	"di",
	"do",
	"e-",
	"e^",
	"ec",
	"ed",
	"el",
	"em",
	"en",
	"ep",
	"er",
	"es",
	"et",
	"ev",
	"ew",
	"ex",
	"fe",
	"ff",
	"fi",
	"fo",
	"fr",
	"g^",
	"ge",
	"gi",
	"go",
	"gr",
	"he",
	"hi",
	"ho",
	"hp",
	"ht",
	"ic",
	"id",
	"ig",
	"il",
	"im",
	"in",
	"ip",
	"ir",
	"is",
	"it",
	"ix",
	"js",
	"ke",
	"le",
	"li",
	"lo",
	"lu",
	"ly",
	"me",
	"mo",
	"mp",
	"ne",
	"no",
	"od",
	"ok",
	"ol",
	"om",
	"on",
	"op",
	"or",
	"ot",
	"ow",
	"pl",
	"po",
	"pr",
	"qu",
	"re",
	"ri",
	"ro",
	"ru",
	"s-",
	"s/",
	"sc",
	"se",
	"sh",
	"si",
	"so",
	"sp",
	"ss",
	"st",
	"su",
	"te",
	"th",
	"ti",
	"to",
	"tr",
	"ts",
	"ty",
	"ub",
	"ud",
	"ul",
	"um",
	"un",
	"up",
	"ur",
	"us",
	"ut",
	"ve",
	"vi",
	"_",
	"-",
	",",
	"?",
	".",
	"*",
	"/",
	"^",
	"=",
	"|",
	"~",
	"$",
	"0",
	"1",
	"2",
	"3",
	"4",
	"5",
	"6",
	"7",
	"8",
	"9",
	"a",
	"b",
	"c",
	"d",
	"e",
	"f",
	"g",
	"h",
	"i",
	"j",
	"k",
	"l",
	"m",
	"n",
	"o",
	"p",
	"q",
	"r",
	"s",
	"t",
	"u",
	"v",
	"w",
	"x",
	"y",
	"z",
}
