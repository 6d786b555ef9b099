package database

import (
	"testing"

	"scoutdb/model"
	"scoutdb/util"
)

func TestMatchPattern(t *testing.T) {
	match, candidate := matchPattern("Springfield", "Springfield")
	util.AssertTrue(t, match)
	util.AssertTrue(t, candidate)

	// A prefix alone is only a candidate.
	match, candidate = matchPattern("Springfield", "Spring")
	util.AssertFalse(t, match)
	util.AssertTrue(t, candidate)

	// A substring anywhere in the name is a candidate.
	match, candidate = matchPattern("Springfield", "field")
	util.AssertFalse(t, match)
	util.AssertTrue(t, candidate)

	match, candidate = matchPattern("Springfield", "Shelbyville")
	util.AssertFalse(t, match)
	util.AssertFalse(t, candidate)

	// Matching is case sensitive, no normalization is applied.
	match, candidate = matchPattern("Springfield", "springfield")
	util.AssertFalse(t, match)
	util.AssertFalse(t, candidate)
}

func TestGroupTokens(t *testing.T) {
	tokens := []string{"Main", "Street", "10"}

	util.AssertEqual(t, [][]string{{"Main Street 10"}}, groupTokens(tokens, 1))

	util.AssertEqual(t, [][]string{
		{"Main", "Street 10"},
		{"Main Street", "10"},
	}, groupTokens(tokens, 2))

	util.AssertEqual(t, [][]string{
		{"Main", "Street", "10"},
	}, groupTokens(tokens, 3))

	// More parts than tokens is impossible.
	util.AssertEqual(t, 0, len(groupTokens(tokens, 4)))
}

func TestInitializeSearchEntries_threeTokens(t *testing.T) {
	search := NewLocationSearch()
	search.InitializeSearchEntries("Main Street 10 Springfield")

	// The natural reading must be among the generated slicings.
	found := false
	for _, entry := range search.Entries {
		if entry.LocationPattern == "Main Street" &&
			entry.AddressPattern == "10" &&
			entry.AdminRegionPattern == "Springfield" {
			found = true
		}
	}
	util.AssertTrue(t, found)

	// Every three-token slicing also appears rotated.
	rotated := false
	for _, entry := range search.Entries {
		if entry.AdminRegionPattern == "Main Street" &&
			entry.LocationPattern == "10" &&
			entry.AddressPattern == "Springfield" {
			rotated = true
		}
	}
	util.AssertTrue(t, rotated)
}

func TestInitializeSearchEntries_singleToken(t *testing.T) {
	search := NewLocationSearch()
	search.InitializeSearchEntries("Springfield")

	util.AssertEqual(t, 1, len(search.Entries))
	util.AssertEqual(t, "Springfield", search.Entries[0].AdminRegionPattern)
	util.AssertEqual(t, "", search.Entries[0].LocationPattern)
	util.AssertEqual(t, "", search.Entries[0].AddressPattern)
}

func TestInitializeSearchEntries_stripsPunctuation(t *testing.T) {
	search := NewLocationSearch()
	search.InitializeSearchEntries("Main Street, Springfield")

	for _, entry := range search.Entries {
		util.AssertFalse(t, entry.AdminRegionPattern == "Street,")
		util.AssertFalse(t, entry.LocationPattern == "Street,")
	}
}

func TestInitializeSearchEntries_emptyInput(t *testing.T) {
	search := NewLocationSearch()
	search.InitializeSearchEntries("   ")
	util.AssertEqual(t, 0, len(search.Entries))
}

func TestSortSearchResults_ranksMatchFirst(t *testing.T) {
	regionA := &model.AdminRegion{Name: "Atown", Object: model.NewObjectFileRef(model.RefArea, 1)}
	regionB := &model.AdminRegion{Name: "Btown", Object: model.NewObjectFileRef(model.RefArea, 2)}

	entries := []LocationSearchResultEntry{
		{
			AdminRegion:             regionB,
			AdminRegionMatchQuality: MatchQualityCandidate,
			LocationMatchQuality:    MatchQualityNone,
			POIMatchQuality:         MatchQualityNone,
			AddressMatchQuality:     MatchQualityNone,
		},
		{
			AdminRegion:             regionA,
			AdminRegionMatchQuality: MatchQualityMatch,
			LocationMatchQuality:    MatchQualityNone,
			POIMatchQuality:         MatchQualityNone,
			AddressMatchQuality:     MatchQualityNone,
		},
	}

	sortSearchResults(entries)

	util.AssertEqual(t, "Atown", entries[0].AdminRegion.Name)
	util.AssertEqual(t, MatchQualityMatch, entries[0].AdminRegionMatchQuality)
}

func TestDedupeSearchResults(t *testing.T) {
	region := &model.AdminRegion{Name: "Atown", Object: model.NewObjectFileRef(model.RefArea, 1)}
	other := &model.AdminRegion{Name: "Btown", Object: model.NewObjectFileRef(model.RefArea, 2)}

	entries := []LocationSearchResultEntry{
		{AdminRegion: region, AdminRegionMatchQuality: MatchQualityMatch},
		{AdminRegion: region, AdminRegionMatchQuality: MatchQualityMatch},
		{AdminRegion: other, AdminRegionMatchQuality: MatchQualityCandidate},
	}

	deduped := dedupeSearchResults(entries)

	util.AssertEqual(t, 2, len(deduped))
	util.AssertEqual(t, "Atown", deduped[0].AdminRegion.Name)
	util.AssertEqual(t, "Btown", deduped[1].AdminRegion.Name)
}
