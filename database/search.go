package database

import (
	"sort"
	"strings"

	"scoutdb/model"
)

// MatchQuality ranks how well a name matched a pattern. Lower values sort
// first, so a full match ranks above a substring candidate.
type MatchQuality int

const (
	MatchQualityMatch     MatchQuality = 1
	MatchQualityCandidate MatchQuality = 2
	MatchQualityNone      MatchQuality = 3
)

func (q MatchQuality) String() string {
	switch q {
	case MatchQualityMatch:
		return "match"
	case MatchQualityCandidate:
		return "candidate"
	default:
		return "none"
	}
}

// LocationSearchEntry is one candidate interpretation of a search input:
// which part of it names the region, the location and the address.
type LocationSearchEntry struct {
	AdminRegionPattern string
	LocationPattern    string
	AddressPattern     string
}

// LocationSearch is a forward search request. All entries share one result
// limit.
type LocationSearch struct {
	Entries []LocationSearchEntry
	Limit   int
}

func NewLocationSearch() *LocationSearch {
	return &LocationSearch{
		Limit: 50,
	}
}

// InitializeSearchEntries tokenizes the free-text input and generates the
// candidate (admin, location, address) slicings of size 1, 2 and 3 in both
// natural and rotated order, to cover the ambiguity of natural language
// addresses. No case folding or other normalization is applied.
func (s *LocationSearch) InitializeSearchEntries(text string) {
	tokens := simplifyTokens(strings.Fields(text))
	if len(tokens) == 0 {
		return
	}

	if len(tokens) >= 3 {
		for _, slice := range groupTokens(tokens, 3) {
			s.Entries = append(s.Entries, LocationSearchEntry{
				LocationPattern:    slice[0],
				AddressPattern:     slice[1],
				AdminRegionPattern: slice[2],
			})
			s.Entries = append(s.Entries, LocationSearchEntry{
				LocationPattern:    slice[1],
				AddressPattern:     slice[2],
				AdminRegionPattern: slice[0],
			})
		}
	}

	if len(tokens) >= 2 {
		for _, slice := range groupTokens(tokens, 2) {
			s.Entries = append(s.Entries, LocationSearchEntry{
				LocationPattern:    slice[0],
				AdminRegionPattern: slice[1],
			})
			s.Entries = append(s.Entries, LocationSearchEntry{
				LocationPattern:    slice[1],
				AdminRegionPattern: slice[0],
			})
		}
	}

	for _, slice := range groupTokens(tokens, 1) {
		s.Entries = append(s.Entries, LocationSearchEntry{
			AdminRegionPattern: slice[0],
		})
	}
}

func simplifyTokens(tokens []string) []string {
	var simplified []string
	for _, token := range tokens {
		token = strings.Trim(token, ",;.")
		if token != "" {
			simplified = append(simplified, token)
		}
	}
	return simplified
}

// groupTokens returns every split of the token list into the given number of
// consecutive non-empty groups, each group joined into one string.
func groupTokens(tokens []string, parts int) [][]string {
	if parts == 1 {
		return [][]string{{strings.Join(tokens, " ")}}
	}
	if len(tokens) < parts {
		return nil
	}

	var groups [][]string
	for headLen := 1; headLen <= len(tokens)-parts+1; headLen++ {
		head := strings.Join(tokens[:headLen], " ")
		for _, tail := range groupTokens(tokens[headLen:], parts-1) {
			group := append([]string{head}, tail...)
			groups = append(groups, group)
		}
	}
	return groups
}

// LocationSearchResultEntry is one ranked search hit. Besides the region it
// carries either nothing, a POI, a location or a location plus address.
type LocationSearchResultEntry struct {
	AdminRegion *model.AdminRegion
	POI         *model.POI
	Location    *model.Location
	Address     *model.Address

	AdminRegionMatchQuality MatchQuality
	POIMatchQuality         MatchQuality
	LocationMatchQuality    MatchQuality
	AddressMatchQuality     MatchQuality
}

type LocationSearchResult struct {
	Results      []LocationSearchResultEntry
	LimitReached bool
}

// matchPattern implements the prefix-substring semantics of the search: a
// full match requires the pattern at position 0 spanning the whole name, a
// candidate only requires the pattern anywhere in the name.
func matchPattern(name string, pattern string) (match bool, candidate bool) {
	position := strings.Index(name, pattern)
	match = position == 0 && len(name) == len(pattern)
	candidate = position >= 0
	return match, candidate
}

func quality(isMatch bool) MatchQuality {
	if isMatch {
		return MatchQualityMatch
	}
	return MatchQualityCandidate
}

type adminRegionResult struct {
	region  *model.AdminRegion
	isMatch bool
}

// adminRegionMatchVisitor matches region names and aliases against one
// pattern, stopping the traversal once the limit is reached.
type adminRegionMatchVisitor struct {
	pattern      string
	limit        int
	results      []adminRegionResult
	limitReached bool
}

func (v *adminRegionMatchVisitor) add(result adminRegionResult) bool {
	if len(v.results) >= v.limit {
		v.limitReached = true
		return false
	}
	v.results = append(v.results, result)
	return true
}

func (v *adminRegionMatchVisitor) Visit(region *model.AdminRegion) (model.Action, error) {
	match, candidate := matchPattern(region.Name, v.pattern)
	if match || candidate {
		if !v.add(adminRegionResult{region: region, isMatch: match}) {
			return model.ActionStop, nil
		}
	}

	for _, alias := range region.Aliases {
		match, candidate = matchPattern(alias.Name, v.pattern)
		if match || candidate {
			// The result is bound to the alias object.
			aliasRegion := *region
			aliasRegion.AliasName = alias.Name
			aliasRegion.AliasObject = model.NewObjectFileRef(model.RefNode, alias.ObjectOffset)

			if !v.add(adminRegionResult{region: &aliasRegion, isMatch: match}) {
				return model.ActionStop, nil
			}
		}
	}

	return model.ActionVisitChildren, nil
}

type poiResult struct {
	region  *model.AdminRegion
	poi     *model.POI
	isMatch bool
}

type locationResult struct {
	region   *model.AdminRegion
	location *model.Location
	isMatch  bool
}

// locationMatchVisitor matches POI and location names within one region
// subtree. POIs and locations share the limit.
type locationMatchVisitor struct {
	pattern         string
	limit           int
	poiResults      []poiResult
	locationResults []locationResult
	limitReached    bool
}

func (v *locationMatchVisitor) full() bool {
	return len(v.poiResults)+len(v.locationResults) >= v.limit
}

func (v *locationMatchVisitor) VisitPOI(region *model.AdminRegion, poi *model.POI) (bool, error) {
	match, candidate := matchPattern(poi.Name, v.pattern)
	if match || candidate {
		if v.full() {
			v.limitReached = true
			return false, nil
		}
		v.poiResults = append(v.poiResults, poiResult{region: region, poi: poi, isMatch: match})
	}
	return !v.limitReached, nil
}

func (v *locationMatchVisitor) VisitLocation(region *model.AdminRegion, location *model.Location) (bool, error) {
	match, candidate := matchPattern(location.Name, v.pattern)
	if match || candidate {
		if v.full() {
			v.limitReached = true
			return false, nil
		}
		v.locationResults = append(v.locationResults, locationResult{region: region, location: location, isMatch: match})
	}
	return !v.limitReached, nil
}

type addressResult struct {
	location *model.Location
	address  *model.Address
	isMatch  bool
}

type addressMatchVisitor struct {
	pattern      string
	limit        int
	results      []addressResult
	limitReached bool
}

func (v *addressMatchVisitor) Visit(region *model.AdminRegion, location *model.Location, address *model.Address) (bool, error) {
	match, candidate := matchPattern(address.Name, v.pattern)
	if match || candidate {
		if len(v.results) >= v.limit {
			v.limitReached = true
			return false, nil
		}
		v.results = append(v.results, addressResult{location: location, address: address, isMatch: match})
	}
	return !v.limitReached, nil
}

// AddressListVisitor collects the addresses of a location up to a limit, in
// stored order.
type AddressListVisitor struct {
	Limit        int
	Results      []*model.Address
	LimitReached bool
}

func (v *AddressListVisitor) Visit(region *model.AdminRegion, location *model.Location, address *model.Address) (bool, error) {
	if len(v.Results) >= v.Limit {
		v.LimitReached = true
		return false, nil
	}
	v.Results = append(v.Results, address)
	return true, nil
}

// SearchForLocations runs the forward search: admin regions first, then
// locations and POIs within the matched regions, then addresses within the
// matched locations. Results are deduplicated, ranked and capped at the
// search limit.
func (d *Database) SearchForLocations(search *LocationSearch) (*LocationSearchResult, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}

	result := &LocationSearchResult{}

	for _, searchEntry := range search.Entries {
		if searchEntry.AdminRegionPattern == "" {
			continue
		}

		adminRegionVisitor := &adminRegionMatchVisitor{
			pattern: searchEntry.AdminRegionPattern,
			limit:   search.Limit,
		}

		if err := d.VisitAdminRegions(adminRegionVisitor); err != nil {
			return nil, err
		}

		if adminRegionVisitor.limitReached {
			result.LimitReached = true
		}

		for _, regionResult := range adminRegionVisitor.results {
			if err := d.handleRegionMatch(search, searchEntry, regionResult, result); err != nil {
				return nil, err
			}
		}
	}

	sortSearchResults(result.Results)
	result.Results = dedupeSearchResults(result.Results)

	if len(result.Results) > search.Limit {
		result.Results = result.Results[:search.Limit]
		result.LimitReached = true
	}

	return result, nil
}

func (d *Database) handleRegionMatch(search *LocationSearch, searchEntry LocationSearchEntry,
	regionResult adminRegionResult, result *LocationSearchResult) error {

	if searchEntry.LocationPattern == "" {
		result.Results = append(result.Results, LocationSearchResultEntry{
			AdminRegion:             regionResult.region,
			AdminRegionMatchQuality: quality(regionResult.isMatch),
			LocationMatchQuality:    MatchQualityNone,
			POIMatchQuality:         MatchQualityNone,
			AddressMatchQuality:     MatchQualityNone,
		})
		return nil
	}

	remaining := search.Limit - len(result.Results)
	if remaining < 0 {
		remaining = 0
	}

	locationVisitor := &locationMatchVisitor{
		pattern: searchEntry.LocationPattern,
		limit:   remaining,
	}

	if err := d.VisitAdminRegionLocations(regionResult.region, locationVisitor); err != nil {
		return err
	}

	if len(locationVisitor.poiResults) == 0 && len(locationVisitor.locationResults) == 0 {
		// A location was demanded inside this region but none was found, so
		// the region itself is not reported as a hit either.
		return nil
	}

	for _, poiResult := range locationVisitor.poiResults {
		result.Results = append(result.Results, LocationSearchResultEntry{
			AdminRegion:             regionResult.region,
			POI:                     poiResult.poi,
			AdminRegionMatchQuality: quality(regionResult.isMatch),
			POIMatchQuality:         quality(poiResult.isMatch),
			LocationMatchQuality:    MatchQualityNone,
			AddressMatchQuality:     MatchQualityNone,
		})
	}

	for _, locationResult := range locationVisitor.locationResults {
		if err := d.handleLocationMatch(search, searchEntry, regionResult, locationResult, result); err != nil {
			return err
		}
	}

	return nil
}

func (d *Database) handleLocationMatch(search *LocationSearch, searchEntry LocationSearchEntry,
	regionResult adminRegionResult, locResult locationResult, result *LocationSearchResult) error {

	if searchEntry.AddressPattern == "" {
		result.Results = append(result.Results, LocationSearchResultEntry{
			AdminRegion:             locResult.region,
			Location:                locResult.location,
			AdminRegionMatchQuality: quality(regionResult.isMatch),
			LocationMatchQuality:    quality(locResult.isMatch),
			POIMatchQuality:         MatchQualityNone,
			AddressMatchQuality:     MatchQualityNone,
		})
		return nil
	}

	remaining := search.Limit - len(result.Results)
	if remaining < 0 {
		remaining = 0
	}

	addressVisitor := &addressMatchVisitor{
		pattern: searchEntry.AddressPattern,
		limit:   remaining,
	}

	if err := d.VisitLocationAddresses(locResult.region, locResult.location, addressVisitor); err != nil {
		return err
	}

	if len(addressVisitor.results) == 0 {
		// No matching address: report the location hit without one.
		result.Results = append(result.Results, LocationSearchResultEntry{
			AdminRegion:             locResult.region,
			Location:                locResult.location,
			AdminRegionMatchQuality: quality(regionResult.isMatch),
			LocationMatchQuality:    quality(locResult.isMatch),
			POIMatchQuality:         MatchQualityNone,
			AddressMatchQuality:     MatchQualityNone,
		})
		return nil
	}

	for _, addressResult := range addressVisitor.results {
		result.Results = append(result.Results, LocationSearchResultEntry{
			AdminRegion:             locResult.region,
			Location:                addressResult.location,
			Address:                 addressResult.address,
			AdminRegionMatchQuality: quality(regionResult.isMatch),
			LocationMatchQuality:    quality(locResult.isMatch),
			POIMatchQuality:         MatchQualityNone,
			AddressMatchQuality:     quality(addressResult.isMatch),
		})
	}

	return nil
}

func sortSearchResults(entries []LocationSearchResultEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]

		if a.AdminRegionMatchQuality != b.AdminRegionMatchQuality {
			return a.AdminRegionMatchQuality < b.AdminRegionMatchQuality
		}
		if a.LocationMatchQuality != b.LocationMatchQuality {
			return a.LocationMatchQuality < b.LocationMatchQuality
		}
		if a.AddressMatchQuality != b.AddressMatchQuality {
			return a.AddressMatchQuality < b.AddressMatchQuality
		}
		if a.POIMatchQuality != b.POIMatchQuality {
			return a.POIMatchQuality < b.POIMatchQuality
		}

		if a.AdminRegion != nil && b.AdminRegion != nil && a.AdminRegion.Name != b.AdminRegion.Name {
			return a.AdminRegion.Name < b.AdminRegion.Name
		}
		if a.Location != nil && b.Location != nil && a.Location.Name != b.Location.Name {
			return a.Location.Name < b.Location.Name
		}
		if a.Address != nil && b.Address != nil && a.Address.Name != b.Address.Name {
			return a.Address.Name < b.Address.Name
		}
		if a.POI != nil && b.POI != nil && a.POI.Name != b.POI.Name {
			return a.POI.Name < b.POI.Name
		}

		return false
	})
}

// searchResultsEqual compares two entries by the identities of their parts,
// not by match quality.
func searchResultsEqual(a, b LocationSearchResultEntry) bool {
	if (a.AdminRegion == nil) != (b.AdminRegion == nil) {
		return false
	}
	if a.AdminRegion != nil {
		if a.AdminRegion.Object != b.AdminRegion.Object || a.AdminRegion.AliasObject != b.AdminRegion.AliasObject {
			return false
		}
	}

	if (a.POI == nil) != (b.POI == nil) {
		return false
	}
	if a.POI != nil && a.POI.Object != b.POI.Object {
		return false
	}

	if (a.Location == nil) != (b.Location == nil) {
		return false
	}
	if a.Location != nil && a.Location.LocationOffset != b.Location.LocationOffset {
		return false
	}

	if (a.Address == nil) != (b.Address == nil) {
		return false
	}
	if a.Address != nil && a.Address.AddressOffset != b.Address.AddressOffset {
		return false
	}

	return true
}

// dedupeSearchResults removes consecutive duplicates after sorting.
func dedupeSearchResults(entries []LocationSearchResultEntry) []LocationSearchResultEntry {
	if len(entries) < 2 {
		return entries
	}

	deduped := entries[:1]
	for _, entry := range entries[1:] {
		if !searchResultsEqual(deduped[len(deduped)-1], entry) {
			deduped = append(deduped, entry)
		}
	}
	return deduped
}
