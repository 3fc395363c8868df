package engine

import (
	"fmt"
	"strings"

	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/parser"
	"github.com/bnema/adblock-engine/internal/preprocessor"
	"github.com/bnema/adblock-engine/internal/resources"
)

// Update is a set of changes to the filters of an engine.  Removed filters
// are identified by their ids.
type Update struct {
	NewNetworkFilters  []*filters.NetworkFilter
	NewCosmeticFilters []*filters.CosmeticFilter
	NewPreprocessors   []*preprocessor.Preprocessor

	RemovedNetworkFilters  []uint32
	RemovedCosmeticFilters []uint32
	RemovedPreprocessors   []*preprocessor.Preprocessor
}

// idSet returns the set of ids, nil if there are none.
func idSet(ids ...[]uint32) (set map[uint32]struct{}) {
	for _, part := range ids {
		for _, id := range part {
			if set == nil {
				set = map[uint32]struct{}{}
			}

			set[id] = struct{}{}
		}
	}

	return set
}

// networkFilters sorts network filters into the buckets of an engine.
type networkFilters struct {
	importants, redirects, filters, exceptions, csp, hideExceptions, html []*filters.NetworkFilter
}

// dispatch adds f to the list of the bucket it belongs to.  CSP, HTML
// filtering and hide exceptions come first since exceptions of those kinds
// are stored with them.
func (nf *networkFilters) dispatch(f *filters.NetworkFilter) {
	switch {
	case f.IsCSP():
		nf.csp = append(nf.csp, f)
	case f.IsHTMLFilteringRule():
		nf.html = append(nf.html, f)
	case f.IsGenericHide(), f.IsSpecificHide():
		nf.hideExceptions = append(nf.hideExceptions, f)
	case f.IsException():
		nf.exceptions = append(nf.exceptions, f)
	case f.IsImportant():
		nf.importants = append(nf.importants, f)
	case f.IsRedirect():
		nf.redirects = append(nf.redirects, f)
	default:
		nf.filters = append(nf.filters, f)
	}
}

// Update applies u to e.  env is the environment preprocessors are
// evaluated in, nil means an empty one.  It returns true if anything was
// applied.
func (e *Engine) Update(u *Update, env preprocessor.Env) (updated bool) {
	if env == nil {
		env = preprocessor.Env{}
	}

	if e.conf.LoadPreprocessors && (len(u.NewPreprocessors) > 0 || len(u.RemovedPreprocessors) > 0) {
		updated = true
		e.preprocessors.Update(u.NewPreprocessors, u.RemovedPreprocessors, env)
	}

	var htmlCosmetic []*filters.CosmeticFilter
	if e.conf.LoadCosmeticFilters && (len(u.NewCosmeticFilters) > 0 || len(u.RemovedCosmeticFilters) > 0) {
		updated = true

		var cosmetics []*filters.CosmeticFilter
		for _, f := range u.NewCosmeticFilters {
			if f.IsHTMLFiltering() {
				htmlCosmetic = append(htmlCosmetic, f)
			} else {
				cosmetics = append(cosmetics, f)
			}
		}

		e.cosmetics.Update(cosmetics, idSet(u.RemovedCosmeticFilters))
	}

	nf := &networkFilters{}
	if e.conf.LoadNetworkFilters && (len(u.NewNetworkFilters) > 0 || len(u.RemovedNetworkFilters) > 0) {
		updated = true

		for _, f := range u.NewNetworkFilters {
			nf.dispatch(f)
		}

		removed := idSet(u.RemovedNetworkFilters)
		e.importants.Update(nf.importants, removed)
		e.redirects.Update(nf.redirects, removed)
		e.filters.Update(nf.filters, removed)
		if e.conf.LoadExceptionFilters {
			e.exceptions.Update(nf.exceptions, removed)
		}

		if e.conf.LoadCSPFilters {
			e.csp.Update(nf.csp, removed)
		}

		e.hideExceptions.Update(nf.hideExceptions, removed)
	}

	if e.conf.EnableHTMLFiltering &&
		(len(nf.html) > 0 || len(htmlCosmetic) > 0 ||
			len(u.RemovedNetworkFilters) > 0 || len(u.RemovedCosmeticFilters) > 0) {
		e.htmlFilters.Update(nf.html, htmlCosmetic, idSet(u.RemovedNetworkFilters, u.RemovedCosmeticFilters))
	}

	if updated {
		e.logger.Debug(
			"engine updated",
			"network_added", len(u.NewNetworkFilters),
			"network_removed", len(u.RemovedNetworkFilters),
			"cosmetic_added", len(u.NewCosmeticFilters),
			"cosmetic_removed", len(u.RemovedCosmeticFilters),
			"preprocessors", len(u.NewPreprocessors),
		)
	}

	return updated
}

// parseLines parses filter lines with the configuration of e.
func (e *Engine) parseLines(lines []string) (res *parser.Result) {
	return parser.Parse(strings.Join(lines, "\n"), e.conf.ParserConfig())
}

// filterIDs returns the ids of the filters of res.
func filterIDs(res *parser.Result) (ids []uint32) {
	ids = make([]uint32, 0, len(res.CosmeticFilters)+len(res.NetworkFilters))
	for _, f := range res.CosmeticFilters {
		ids = append(ids, f.ID())
	}

	for _, f := range res.NetworkFilters {
		ids = append(ids, f.ID())
	}

	return ids
}

// UpdateFromDiff parses the lines of d and applies them to e.  It returns
// true if anything was applied.
func (e *Engine) UpdateFromDiff(d *parser.Diff, env preprocessor.Env) (updated bool) {
	u := &Update{}

	if len(d.Removed) > 0 {
		res := e.parseLines(d.Removed)
		for _, f := range res.CosmeticFilters {
			u.RemovedCosmeticFilters = append(u.RemovedCosmeticFilters, f.ID())
		}

		for _, f := range res.NetworkFilters {
			u.RemovedNetworkFilters = append(u.RemovedNetworkFilters, f.ID())
		}
	}

	if len(d.Added) > 0 {
		res := e.parseLines(d.Added)
		u.NewCosmeticFilters = res.CosmeticFilters
		u.NewNetworkFilters = res.NetworkFilters
	}

	for cond, pd := range d.Preprocessors {
		if pd == nil {
			continue
		}

		if len(pd.Removed) > 0 {
			ids := filterIDs(e.parseLines(pd.Removed))
			u.RemovedPreprocessors = append(u.RemovedPreprocessors, preprocessor.FromCondition(cond, ids...))
		}

		if len(pd.Added) > 0 {
			ids := filterIDs(e.parseLines(pd.Added))
			u.NewPreprocessors = append(u.NewPreprocessors, preprocessor.FromCondition(cond, ids...))
		}
	}

	return e.Update(u, env)
}

// UpdateEnv reevaluates the preprocessors of e in env.
func (e *Engine) UpdateEnv(env preprocessor.Env) {
	e.preprocessors.UpdateEnv(env)
}

// UpdateResources replaces the resources of e with the ones in data unless
// they already have checksum.  It returns true if the resources changed.
func (e *Engine) UpdateResources(data []byte, checksum string) (updated bool, err error) {
	if e.resources.Checksum == checksum {
		return false, nil
	}

	res, err := resources.Parse(data, checksum)
	if err != nil {
		return false, fmt.Errorf("updating resources: %w", err)
	}

	e.resources = res
	e.logger.Debug(
		"resources updated",
		"checksum", checksum,
		"resources", len(res.Resources),
		"scriptlets", len(res.Scriptlets),
	)

	return true, nil
}

// Redirect resources used by the Block helpers.
const (
	blockRedirectScript = "noopjs"
	blockRedirectImage  = "1x1.gif"
	blockRedirectMedia  = "noopmp4-1s"
	blockRedirectFrame  = "noopframe"
)

// block adds a filter blocking every request of the given content type.
func (e *Engine) block(option string) (res *Engine) {
	e.UpdateFromDiff(&parser.Diff{Added: []string{"$" + option}}, nil)

	return e
}

// BlockScripts makes e redirect every script to an empty one.
func (e *Engine) BlockScripts() (res *Engine) {
	return e.block("script,redirect=" + blockRedirectScript)
}

// BlockImages makes e redirect every image to a transparent one.
func (e *Engine) BlockImages() (res *Engine) {
	return e.block("image,redirect=" + blockRedirectImage)
}

// BlockMedias makes e redirect every media to an empty one.
func (e *Engine) BlockMedias() (res *Engine) {
	return e.block("media,redirect=" + blockRedirectMedia)
}

// BlockFrames makes e redirect every frame to an empty document.
func (e *Engine) BlockFrames() (res *Engine) {
	return e.block("subdocument,redirect=" + blockRedirectFrame)
}

// BlockFonts makes e block every font.
func (e *Engine) BlockFonts() (res *Engine) {
	return e.block("font")
}

// BlockStyles makes e block every stylesheet.
func (e *Engine) BlockStyles() (res *Engine) {
	return e.block("stylesheet")
}
