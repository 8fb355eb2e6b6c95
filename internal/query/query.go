package query

import (
	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/internal/visibility"
	"github.com/cuemby/indexdb/pkg/metrics"
)

// Occurrence is one canonical query result: a symbol's appearance in a
// specific file, within a specific unit, contributed by a specific
// provider (§3 "Canonical occurrence").
type Occurrence struct {
	USR          string
	Name         string
	Roles        schema.Roles
	RelatedRoles schema.Roles
	Provider     schema.Code
	File         schema.Code
	FilePath     string
	Unit         schema.Code
	ModuleName   schema.Code
}

// Engine is the Query Engine. It reads through env and decodes
// provider records through rd, filtering every result through vis.
type Engine struct {
	env *kv.Environment
	rd  reader.Reader
	vis *visibility.Filter
}

// New returns an Engine bound to env, rd, and vis.
func New(env *kv.Environment, rd reader.Reader, vis *visibility.Filter) *Engine {
	return &Engine{env: env, rd: rd, vis: vis}
}

// withReader runs fn in a read transaction, timing and counting it
// under the named query metric.
func (e *Engine) withReader(name string, fn func(r *rtxn.Reader) error) error {
	timer := metrics.NewTimer()
	defer func() {
		metrics.QueriesTotal.WithLabelValues(name).Inc()
		timer.ObserveDurationVec(metrics.QueryDuration, name)
	}()
	return e.env.View(func(rtx *kv.ReadTxn) error {
		return fn(rtxn.New(rtx))
	})
}

// unitFilter returns a predicate suitable for
// rtxn.Reader.ForeachProviderFileReferences that keeps only units the
// Visibility Filter currently considers in scope (§4.8).
func (e *Engine) unitFilter(r *rtxn.Reader) func(schema.Code) bool {
	return func(unit schema.Code) bool {
		return e.vis.IsUnitVisible(r, unit)
	}
}

// decodeAndFindSymbol decodes provider's record and returns the
// decoded symbol matching usr, if any.
func (e *Engine) decodeAndFindSymbol(r *rtxn.Reader, provider schema.Code, usr string) (reader.DecodedSymbol, bool) {
	name, ok := r.ResolveProviderName(provider)
	if !ok {
		return reader.DecodedSymbol{}, false
	}
	symbols, err := e.rd.ReadRecordSymbols(name)
	if err != nil {
		// ReaderError (§7): the affected provider is silently skipped.
		return reader.DecodedSymbol{}, false
	}
	for _, s := range symbols {
		if s.USR == usr {
			return s, true
		}
	}
	return reader.DecodedSymbol{}, false
}

// emitProviderOccurrences yields one Occurrence per (file, unit) the
// provider is visibly associated with, for the given decoded symbol.
func (e *Engine) emitProviderOccurrences(r *rtxn.Reader, provider schema.Code, sym reader.DecodedSymbol, out *[]Occurrence) {
	r.ForeachProviderFileReferences(provider, e.unitFilter(r), func(ref rtxn.ProviderFileRef) bool {
		path, _ := r.ResolveFilePath(ref.File)
		*out = append(*out, Occurrence{
			USR:          sym.USR,
			Name:         sym.Name,
			Roles:        sym.Roles,
			RelatedRoles: sym.RelatedRoles,
			Provider:     provider,
			File:         ref.File,
			FilePath:     path,
			Unit:         ref.Unit,
			ModuleName:   ref.ModuleName,
		})
		return true
	})
}

// OccurrenceByUSR implements §4.7 "Occurrence-by-USR": lookup
// providers matching roles, decode each, and yield the occurrences
// whose role mask intersects roles.
func (e *Engine) OccurrenceByUSR(usr string, roles schema.Roles) ([]Occurrence, error) {
	usrCode := schema.IDCode(usr)
	var out []Occurrence
	err := e.withReader("occurrence_by_usr", func(r *rtxn.Reader) error {
		r.LookupProvidersForUSR(usrCode, roles, 0, func(pu rtxn.ProviderUSR) bool {
			sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
			if !ok || !sym.Roles.Intersects(roles) {
				return true
			}
			e.emitProviderOccurrences(r, pu.Provider, sym, &out)
			return true
		})
		return nil
	})
	return out, err
}

// RelatedOccurrenceByUSR is OccurrenceByUSR's analogue over
// RelatedRoles, used for relation-graph traversal (override/base/call
// edges carried in the "related roles" mask, §3).
func (e *Engine) RelatedOccurrenceByUSR(usr string, relatedRoles schema.Roles) ([]Occurrence, error) {
	usrCode := schema.IDCode(usr)
	var out []Occurrence
	err := e.withReader("related_occurrence_by_usr", func(r *rtxn.Reader) error {
		r.LookupProvidersForUSR(usrCode, 0, relatedRoles, func(pu rtxn.ProviderUSR) bool {
			sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
			if !ok || !sym.RelatedRoles.Intersects(relatedRoles) {
				return true
			}
			e.emitProviderOccurrences(r, pu.Provider, sym, &out)
			return true
		})
		return nil
	})
	return out, err
}

// canonicalMask is the role set eligible for canonical-occurrence
// consideration: declaration, definition, or an explicit canonical tag.
const canonicalMask = schema.RoleDeclaration | schema.RoleDefinition | schema.RoleCanonical

// canonicalOccurrencesForUSR implements §4.7's three-tier fallback:
// prefer a Definition/explicit-canonical occurrence; if none exists,
// fall back to a Declaration (promoted to canonical for
// declaration-as-canonical kinds, e.g. ObjC classes/extensions/
// properties); if still none, fall back to any matching occurrence at
// all (e.g. a bare Reference, per spec.md E1's "bar" example). Each
// provider is placed in exactly one tier by its symbol's roles and
// contributes one occurrence per visible file association; the highest
// non-empty tier across all providers is returned (a symbol can be
// canonical in several visible units at once).
func (e *Engine) canonicalOccurrencesForUSR(r *rtxn.Reader, usr string) []Occurrence {
	usrCode := schema.IDCode(usr)

	var tierDefinition, tierDeclaration, tierAny []Occurrence

	r.LookupProvidersForUSR(usrCode, 0, 0, func(pu rtxn.ProviderUSR) bool {
		sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
		if !ok {
			return true
		}

		isCanonical := sym.Roles.Has(schema.RoleCanonical) || sym.Roles.Has(schema.RoleDefinition)
		isDeclaration := sym.Roles.Has(schema.RoleDeclaration)
		if sym.Info.DeclarationIsCanonical && isDeclaration {
			isCanonical = true
		}

		switch {
		case isCanonical:
			e.emitProviderOccurrences(r, pu.Provider, sym, &tierDefinition)
		case isDeclaration:
			e.emitProviderOccurrences(r, pu.Provider, sym, &tierDeclaration)
		default:
			e.emitProviderOccurrences(r, pu.Provider, sym, &tierAny)
		}
		return true
	})

	if len(tierDefinition) > 0 {
		return tierDefinition
	}
	if len(tierDeclaration) > 0 {
		return tierDeclaration
	}
	return tierAny
}

// CanonicalByUSR returns the canonical occurrence(s) for a known USR.
func (e *Engine) CanonicalByUSR(usr string) ([]Occurrence, error) {
	var out []Occurrence
	err := e.withReader("canonical_by_usr", func(r *rtxn.Reader) error {
		out = e.canonicalOccurrencesForUSR(r, usr)
		return nil
	})
	return out, err
}

// CanonicalByName returns canonical occurrences for every USR
// registered under the exact symbol name (§6 "canonical-by-name").
func (e *Engine) CanonicalByName(name string) ([]Occurrence, error) {
	var out []Occurrence
	err := e.withReader("canonical_by_name", func(r *rtxn.Reader) error {
		r.ForeachUSRByName(name, func(usrCode schema.Code) bool {
			out = append(out, e.resolveCanonicalByCode(r, usrCode)...)
			return true
		})
		return nil
	})
	return out, err
}

// CanonicalByPattern returns canonical occurrences for every USR whose
// symbol name matches pattern under opts (§6 "canonical-by-pattern").
func (e *Engine) CanonicalByPattern(pattern string, opts rtxn.MatchOptions) ([]Occurrence, error) {
	var out []Occurrence
	err := e.withReader("canonical_by_pattern", func(r *rtxn.Reader) error {
		r.FindUSRsWithNameContaining(pattern, opts, func(_ string, usrCode schema.Code) bool {
			out = append(out, e.resolveCanonicalByCode(r, usrCode)...)
			return true
		})
		return nil
	})
	return out, err
}

// CanonicalByKind returns canonical occurrences for every USR filed
// under kind in usrs-by-global-kind (§6 "canonical-by-kind").
func (e *Engine) CanonicalByKind(kind schema.GlobalSymbolKind) ([]Occurrence, error) {
	var out []Occurrence
	err := e.withReader("canonical_by_kind", func(r *rtxn.Reader) error {
		r.ForeachUSROfGlobalKind(kind, func(usrCode schema.Code) bool {
			out = append(out, e.resolveCanonicalByCode(r, usrCode)...)
			return true
		})
		return nil
	})
	return out, err
}

// resolveCanonicalByCode looks a USR's string form up from any
// provider's decoded record, then computes its canonical occurrences.
// Since the schema only stores the USR's Code, the USR string must be
// recovered from a provider's own record (providers-by-usr holds no
// string, §3 "the string itself is stored once").
func (e *Engine) resolveCanonicalByCode(r *rtxn.Reader, usrCode schema.Code) []Occurrence {
	var usr string
	found := false
	r.LookupProvidersForUSR(usrCode, 0, 0, func(pu rtxn.ProviderUSR) bool {
		name, ok := r.ResolveProviderName(pu.Provider)
		if !ok {
			return true
		}
		symbols, err := e.rd.ReadRecordSymbols(name)
		if err != nil {
			return true
		}
		for _, s := range symbols {
			if schema.IDCode(s.USR) == usrCode {
				usr = s.USR
				found = true
				return false
			}
		}
		return true
	})
	if !found {
		return nil
	}
	return e.canonicalOccurrencesForUSR(r, usr)
}

// UnitsContainingFile returns every unit name directly depending on
// path (§6 "unit-of-file").
func (e *Engine) UnitsContainingFile(path string) ([]string, error) {
	fileCode := schema.IDCode(path)
	var names []string
	err := e.withReader("unit_of_file", func(r *rtxn.Reader) error {
		r.ForeachUnitContainingFile(fileCode, func(unit schema.Code) bool {
			if info, ok, err := r.GetUnitInfo(unit); err == nil && ok {
				names = append(names, info.Name)
			}
			return true
		})
		return nil
	})
	return names, err
}

// FilesOfUnit returns the resolved file paths of every FileDepend and
// ProviderDepend file of unitName (§6 "file-of-unit").
func (e *Engine) FilesOfUnit(unitName string) ([]string, error) {
	var paths []string
	err := e.withReader("file_of_unit", func(r *rtxn.Reader) error {
		info, ok, err := r.GetUnitInfoByName(unitName)
		if err != nil || !ok {
			return err
		}
		seen := make(map[schema.Code]struct{})
		add := func(c schema.Code) {
			if _, dup := seen[c]; dup {
				return
			}
			seen[c] = struct{}{}
			if p, ok := r.ResolveFilePath(c); ok {
				paths = append(paths, p)
			}
		}
		for _, f := range info.FileDepends {
			add(f)
		}
		for _, pd := range info.ProviderDepends {
			add(pd.FileCode)
		}
		return nil
	})
	return paths, err
}

// FileIncludes reports the set of files pulled in by every unit that
// contains path — a best-effort proxy for the preprocessor include
// graph, since the core has no independent notion of "#include" beyond
// a unit's flattened FileDepends/ProviderDepends set (§6 "file includes").
func (e *Engine) FileIncludes(path string) ([]string, error) {
	fileCode := schema.IDCode(path)
	var paths []string
	err := e.withReader("file_includes", func(r *rtxn.Reader) error {
		seen := map[schema.Code]struct{}{fileCode: {}}
		r.ForeachUnitContainingFile(fileCode, func(unit schema.Code) bool {
			info, ok, err := r.GetUnitInfo(unit)
			if err != nil || !ok {
				return true
			}
			for _, f := range info.FileDepends {
				if _, dup := seen[f]; dup {
					continue
				}
				seen[f] = struct{}{}
				if p, ok := r.ResolveFilePath(f); ok {
					paths = append(paths, p)
				}
			}
			return true
		})
		return nil
	})
	return paths, err
}

// OverrideAncestry returns usr's own occurrences from every provider
// whose providers-by-usr entry for usr carries the relation role:
// RelationOverrideOf for instance methods, RelationBaseOf otherwise.
// The relation is not followed to other USRs: only usr itself is
// visited, so occurrences of its bases or overridden methods are not
// returned.
func (e *Engine) OverrideAncestry(usr string, isInstanceMethod bool) ([]Occurrence, error) {
	relation := schema.RelationBaseOf
	if isInstanceMethod {
		relation = schema.RelationOverrideOf
	}

	var out []Occurrence
	visited := make(map[string]struct{})
	err := e.withReader("override_ancestry", func(r *rtxn.Reader) error {
		e.walkOverrides(r, usr, relation, visited, &out)
		return nil
	})
	return out, err
}

func (e *Engine) walkOverrides(r *rtxn.Reader, usr string, relation schema.Roles, visited map[string]struct{}, out *[]Occurrence) {
	if _, ok := visited[usr]; ok {
		return
	}
	visited[usr] = struct{}{}

	usrCode := schema.IDCode(usr)
	r.LookupProvidersForUSR(usrCode, 0, relation, func(pu rtxn.ProviderUSR) bool {
		sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
		if !ok {
			return true
		}
		e.emitProviderOccurrences(r, pu.Provider, sym, out)
		return true
	})
}

// CallSite is one call occurrence produced by CallOccurrences.
type CallSite struct {
	Occurrence
	ReceiverUSR string // empty if the call site is untyped/static
}

// CallOccurrences implements §4.7's call-site expansion: direct calls
// to usr, plus, if usr is a dynamically-dispatched method, the calls
// to every override reachable through the receiver's class hierarchy
// (RelationReceivedBy / RelationChildOf / RelationOverrideOf edges).
func (e *Engine) CallOccurrences(usr string, dynamic bool) ([]CallSite, error) {
	var out []CallSite
	err := e.withReader("call_occurrences", func(r *rtxn.Reader) error {
		e.collectDirectCalls(r, usr, &out)
		if !dynamic {
			return nil
		}

		visited := make(map[string]struct{})
		e.walkDynamicOverrides(r, usr, visited, &out)
		return nil
	})
	return out, err
}

func (e *Engine) collectDirectCalls(r *rtxn.Reader, usr string, out *[]CallSite) {
	usrCode := schema.IDCode(usr)
	r.LookupProvidersForUSR(usrCode, 0, schema.RelationCalledBy, func(pu rtxn.ProviderUSR) bool {
		sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
		if !ok {
			return true
		}
		var occs []Occurrence
		e.emitProviderOccurrences(r, pu.Provider, sym, &occs)
		for _, o := range occs {
			*out = append(*out, CallSite{Occurrence: o})
		}
		return true
	})
}

// walkDynamicOverrides gathers usr's receiver hierarchy (through
// RelationReceivedBy / RelationChildOf, flattening RelationExtendedBy
// extensions to their extended type) and, for each base class or
// protocol reached, enumerates overrides and recursively their direct
// callers, tagging each call site with the receiver it was found
// under (§4.7 step b/c).
func (e *Engine) walkDynamicOverrides(r *rtxn.Reader, usr string, visited map[string]struct{}, out *[]CallSite) {
	if _, ok := visited[usr]; ok {
		return
	}
	visited[usr] = struct{}{}

	usrCode := schema.IDCode(usr)
	receivers := schema.RelationReceivedBy | schema.RelationChildOf | schema.RelationExtendedBy

	r.LookupProvidersForUSR(usrCode, 0, receivers, func(pu rtxn.ProviderUSR) bool {
		sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
		if !ok {
			return true
		}

		var baseOccs []Occurrence
		e.emitProviderOccurrences(r, pu.Provider, sym, &baseOccs)
		for _, occ := range baseOccs {
			*out = append(*out, CallSite{Occurrence: occ, ReceiverUSR: usr})
		}
		return true
	})

	// Recurse into overrides of usr, collecting their direct callers.
	r.LookupProvidersForUSR(usrCode, 0, schema.RelationOverrideOf, func(pu rtxn.ProviderUSR) bool {
		sym, ok := e.decodeAndFindSymbol(r, pu.Provider, usr)
		if !ok {
			return true
		}
		e.collectDirectCalls(r, sym.USR, out)
		e.walkDynamicOverrides(r, sym.USR, visited, out)
		return true
	})
}
