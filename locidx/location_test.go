package locidx_test

import (
	"testing"

	"scoutdb/builder"
	"scoutdb/locidx"
	"scoutdb/model"
	"scoutdb/util"
)

func buildIndex(t *testing.T) (*locidx.LocationIndex, *builder.Sample) {
	directory := t.TempDir()
	sample := builder.NewSample()

	_, err := sample.Dataset.Build(directory)
	util.AssertNil(t, err)

	index := locidx.NewLocationIndex()
	util.AssertNil(t, index.Load(directory))
	t.Cleanup(func() { index.Close() })

	return index, sample
}

// collectingVisitor records the visited region names and answers with a fixed
// action.
type collectingVisitor struct {
	action  model.Action
	visited []string
	regions []*model.AdminRegion
}

func (v *collectingVisitor) Visit(region *model.AdminRegion) (model.Action, error) {
	v.visited = append(v.visited, region.Name)
	v.regions = append(v.regions, region)
	return v.action, nil
}

func TestVisitAdminRegions_visitChildren(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))

	util.AssertEqual(t, []string{"Bavaria", "Springfield"}, visitor.visited)

	// The stored record carries the region data.
	bavaria := visitor.regions[0]
	util.AssertEqual(t, model.RefArea, bavaria.Object.Type)
	util.AssertEqual(t, 1, len(bavaria.Aliases))
	util.AssertEqual(t, "80331", bavaria.Aliases[0].Name)
	util.AssertEqual(t, model.FileOffset(0), bavaria.ParentOffset)

	// The child points back at its parent by offset.
	springfield := visitor.regions[1]
	util.AssertEqual(t, bavaria.RegionOffset, springfield.ParentOffset)
}

func TestVisitAdminRegions_skipChildren(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionSkipChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))

	util.AssertEqual(t, []string{"Bavaria"}, visitor.visited)
}

func TestVisitAdminRegions_stop(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionStop}
	util.AssertNil(t, index.VisitAdminRegions(visitor))

	util.AssertEqual(t, []string{"Bavaria"}, visitor.visited)
}

type locationCollector struct {
	pois      []string
	locations []string
	regions   []*model.AdminRegion
	locs      []*model.Location
	stopAfter int
}

func (v *locationCollector) VisitPOI(region *model.AdminRegion, poi *model.POI) (bool, error) {
	v.pois = append(v.pois, poi.Name)
	return v.stopAfter == 0 || len(v.pois)+len(v.locations) < v.stopAfter, nil
}

func (v *locationCollector) VisitLocation(region *model.AdminRegion, location *model.Location) (bool, error) {
	v.locations = append(v.locations, location.Name)
	v.regions = append(v.regions, region)
	v.locs = append(v.locs, location)
	return v.stopAfter == 0 || len(v.pois)+len(v.locations) < v.stopAfter, nil
}

func TestVisitAdminRegionLocations_recursive(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))
	bavaria := visitor.regions[0]

	collector := &locationCollector{}
	util.AssertNil(t, index.VisitAdminRegionLocations(bavaria, collector, true))

	// Bavaria has no own locations, the recursion reaches Springfield.
	util.AssertEqual(t, []string{"Town Hall"}, collector.pois)
	util.AssertEqual(t, []string{"Main Street", "Elm Street"}, collector.locations)
}

func TestVisitAdminRegionLocations_nonRecursive(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))
	bavaria := visitor.regions[0]

	collector := &locationCollector{}
	util.AssertNil(t, index.VisitAdminRegionLocations(bavaria, collector, false))

	util.AssertEqual(t, 0, len(collector.pois))
	util.AssertEqual(t, 0, len(collector.locations))
}

func TestVisitAdminRegionLocations_earlyStop(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))
	bavaria := visitor.regions[0]

	collector := &locationCollector{stopAfter: 2}
	util.AssertNil(t, index.VisitAdminRegionLocations(bavaria, collector, true))

	util.AssertEqual(t, 2, len(collector.pois)+len(collector.locations))
}

type addressCollector struct {
	names   []string
	objects []model.ObjectFileRef
}

func (v *addressCollector) Visit(region *model.AdminRegion, location *model.Location, address *model.Address) (bool, error) {
	v.names = append(v.names, address.Name)
	v.objects = append(v.objects, address.Object)
	return true, nil
}

func TestVisitLocationAddresses(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))
	bavaria := visitor.regions[0]

	collector := &locationCollector{}
	util.AssertNil(t, index.VisitAdminRegionLocations(bavaria, collector, true))

	var mainStreet *model.Location
	var mainStreetRegion *model.AdminRegion
	for i, location := range collector.locs {
		if location.Name == "Main Street" {
			mainStreet = location
			mainStreetRegion = collector.regions[i]
		}
	}
	util.AssertNotNil(t, mainStreet)

	addresses := &addressCollector{}
	util.AssertNil(t, index.VisitLocationAddresses(mainStreetRegion, mainStreet, addresses))

	util.AssertEqual(t, []string{"10", "12"}, addresses.names)
	util.AssertEqual(t, model.RefArea, addresses.objects[0].Type)
	util.AssertEqual(t, model.RefNode, addresses.objects[1].Type)
}

func TestVisitLocationAddresses_locationWithoutAddresses(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))
	bavaria := visitor.regions[0]

	collector := &locationCollector{}
	util.AssertNil(t, index.VisitAdminRegionLocations(bavaria, collector, true))

	var elmStreet *model.Location
	var elmStreetRegion *model.AdminRegion
	for i, location := range collector.locs {
		if location.Name == "Elm Street" {
			elmStreet = location
			elmStreetRegion = collector.regions[i]
		}
	}
	util.AssertNotNil(t, elmStreet)

	addresses := &addressCollector{}
	util.AssertNil(t, index.VisitLocationAddresses(elmStreetRegion, elmStreet, addresses))
	util.AssertEqual(t, 0, len(addresses.names))
}

func TestResolveAdminRegionHierachie(t *testing.T) {
	index, _ := buildIndex(t)

	visitor := &collectingVisitor{action: model.ActionVisitChildren}
	util.AssertNil(t, index.VisitAdminRegions(visitor))
	springfield := visitor.regions[1]

	regions, err := index.ResolveAdminRegionHierachie(springfield)
	util.AssertNil(t, err)

	util.AssertEqual(t, 2, len(regions))
	util.AssertEqual(t, "Springfield", regions[springfield.RegionOffset].Name)
	util.AssertEqual(t, "Bavaria", regions[springfield.ParentOffset].Name)
}
