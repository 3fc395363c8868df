// Package engine matches network requests and pages against filter lists:
// it decides whether a request is blocked, redirected or allowed and which
// styles, scripts, CSP directives and HTML rewrites apply to a page.
package engine

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/adblock-engine/internal/bucket"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/metadata"
	"github.com/bnema/adblock-engine/internal/parser"
	"github.com/bnema/adblock-engine/internal/preprocessor"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/bnema/adblock-engine/internal/resources"
)

// Version is the version of the serialized format.  Serialized engines of
// another version are rejected.
const Version uint16 = 700

// defaultParseCacheSize is the number of URLs whose hostname and domain are
// cached by engines built without a HostnameParser.
const defaultParseCacheSize = 1024

// Options are the options of New.
type Options struct {
	// Logger is used for debug messages about updates.  Nil means discard.
	Logger *slog.Logger

	// Config is the configuration of the engine.  Nil means DefaultConfig.
	Config *Config

	// HostnameParser extracts hostnames and domains for NewRequest.  Nil
	// means a caching parser.
	HostnameParser request.HostnameParser

	// Lists maps the names of loaded lists to their checksums.
	Lists map[string]string

	NetworkFilters  []*filters.NetworkFilter
	CosmeticFilters []*filters.CosmeticFilter
	Preprocessors   []*preprocessor.Preprocessor
}

// Engine is a filtering engine.  Query methods are safe for concurrent use.
// Update methods must not be called concurrently with any other method.
type Engine struct {
	logger         *slog.Logger
	events         *emitter
	conf           *Config
	bconf          *bucket.Config
	hostnameParser request.HostnameParser

	lists         map[string]string
	preprocessors *bucket.PreprocessorBucket

	// importants are $important filters, not subject to exceptions.
	importants *bucket.NetworkBucket

	// redirects are $redirect and $redirect-rule filters.
	redirects *bucket.NetworkBucket

	// filters are the other blocking filters.
	filters *bucket.NetworkBucket

	// exceptions are @@ filters.
	exceptions *bucket.NetworkBucket

	// csp are $csp filters and their exceptions.
	csp *bucket.NetworkBucket

	// hideExceptions are $elemhide, $generichide and $specifichide filters.
	hideExceptions *bucket.NetworkBucket

	cosmetics   *bucket.CosmeticBucket
	htmlFilters *bucket.HTMLBucket

	resources *resources.Resources
	metadata  *metadata.Metadata
}

// New returns an engine loaded with the filters of opts.
func New(opts *Options) (e *Engine) {
	conf := opts.Config
	if conf == nil {
		conf = DefaultConfig()
	}

	e = newEmpty(opts.Logger, conf, opts.HostnameParser)
	if opts.Lists != nil {
		e.lists = maps.Clone(opts.Lists)
	}

	if len(opts.NetworkFilters) > 0 || len(opts.CosmeticFilters) > 0 || len(opts.Preprocessors) > 0 {
		e.Update(&Update{
			NewNetworkFilters:  opts.NetworkFilters,
			NewCosmeticFilters: opts.CosmeticFilters,
			NewPreprocessors:   opts.Preprocessors,
		}, nil)
	}

	return e
}

// newEmpty returns an engine without filters.  conf must not be nil.
func newEmpty(logger *slog.Logger, conf *Config, p request.HostnameParser) (e *Engine) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	if p == nil {
		p = request.NewParser(defaultParseCacheSize)
	}

	c := *conf
	bconf := c.bucketConfig()

	return &Engine{
		logger:         logger,
		events:         newEmitter(),
		conf:           &c,
		bconf:          bconf,
		hostnameParser: p,
		lists:          map[string]string{},
		preprocessors:  bucket.NewPreprocessorBucket(),
		importants:     bucket.NewNetworkBucket(bconf),
		redirects:      bucket.NewNetworkBucket(bconf),
		filters:        bucket.NewNetworkBucket(bconf),
		exceptions:     bucket.NewNetworkBucket(bconf),
		csp:            bucket.NewNetworkBucket(bconf),
		hideExceptions: bucket.NewNetworkBucket(bconf),
		cosmetics:      bucket.NewCosmeticBucket(bconf),
		htmlFilters:    bucket.NewHTMLBucket(bconf),
		resources:      resources.Empty(),
	}
}

// Empty returns an engine without filters.  A nil conf means DefaultConfig.
func Empty(conf *Config) (e *Engine) {
	return New(&Options{Config: conf})
}

// Parse returns an engine loaded with the filters of list.  The parse
// diagnostics are returned as well.  opts may be nil.
func Parse(list string, opts *Options) (e *Engine, res *parser.Result) {
	if opts == nil {
		opts = &Options{}
	}

	conf := opts.Config
	if conf == nil {
		conf = DefaultConfig()
	}

	res = parser.Parse(list, conf.ParserConfig())

	o := *opts
	o.Config = conf
	o.NetworkFilters = res.NetworkFilters
	o.CosmeticFilters = res.CosmeticFilters
	o.Preprocessors = res.Preprocessors

	return New(&o), res
}

// Config returns a copy of the configuration of e.
func (e *Engine) Config() (c Config) { return *e.conf }

// Resources returns the resources of e.
func (e *Engine) Resources() (r *resources.Resources) { return e.resources }

// Metadata returns the tracker database of e, if any.
func (e *Engine) Metadata() (m *metadata.Metadata) { return e.metadata }

// SetMetadata replaces the tracker database of e.
func (e *Engine) SetMetadata(m *metadata.Metadata) { e.metadata = m }

// NewRequest returns the request described by d, with hostnames parsed by
// the parser of e.  If the engine is configured to, requests of unknown type
// get a type guessed from their URL.
func (e *Engine) NewRequest(d request.Details) (r *request.Request) {
	r = request.New(d, e.hostnameParser)
	if e.conf.GuessRequestTypeFromURL && (d.Type == "" || d.Type == request.TypeOther) {
		r.GuessType()
	}

	return r
}

// isExcluded returns true if the filter with id is disabled by a
// preprocessor.
func (e *Engine) isExcluded(id uint32) (ok bool) {
	return e.preprocessors.IsExcluded(id)
}

// LoadedLists returns the names of the loaded lists, sorted.
func (e *Engine) LoadedLists() (names []string) {
	return slices.Sorted(maps.Keys(e.lists))
}

// HasList returns true if the list name is loaded with checksum.
func (e *Engine) HasList(name, checksum string) (ok bool) {
	c, ok := e.lists[name]

	return ok && c == checksum
}

// SetList records that the list name with checksum is loaded.
func (e *Engine) SetList(name, checksum string) {
	e.lists[name] = checksum
}

// Stats are the sizes of the buckets of an engine.
type Stats struct {
	Importants     int
	Redirects      int
	Filters        int
	Exceptions     int
	CSP            int
	HideExceptions int
	Cosmetics      int
	HTMLFilters    int
	Preprocessors  int
	Excluded       int
	Resources      int
	Scriptlets     int
	Lists          int
}

// Stats returns the sizes of the buckets of e.
func (e *Engine) Stats() (s *Stats) {
	return &Stats{
		Importants:     e.importants.Size(),
		Redirects:      e.redirects.Size(),
		Filters:        e.filters.Size(),
		Exceptions:     e.exceptions.Size(),
		CSP:            e.csp.Size(),
		HideExceptions: e.hideExceptions.Size(),
		Cosmetics:      e.cosmetics.Size(),
		HTMLFilters:    e.htmlFilters.Size(),
		Preprocessors:  len(e.preprocessors.Preprocessors()),
		Excluded:       e.preprocessors.Excluded(),
		Resources:      len(e.resources.Resources),
		Scriptlets:     len(e.resources.Scriptlets),
		Lists:          len(e.lists),
	}
}

// Filters are the filters of an engine.
type Filters struct {
	NetworkFilters  []*filters.NetworkFilter
	CosmeticFilters []*filters.CosmeticFilter
}

// GetFilters returns every filter of e.
func (e *Engine) GetFilters() (fs *Filters) {
	fs = &Filters{CosmeticFilters: e.cosmetics.Filters()}
	for _, b := range []*bucket.NetworkBucket{
		e.filters,
		e.exceptions,
		e.importants,
		e.redirects,
		e.csp,
		e.hideExceptions,
	} {
		fs.NetworkFilters = append(fs.NetworkFilters, b.Filters()...)
	}

	network, cosmetic := e.htmlFilters.Filters()
	fs.NetworkFilters = append(fs.NetworkFilters, network...)
	fs.CosmeticFilters = append(fs.CosmeticFilters, cosmetic...)

	return fs
}
