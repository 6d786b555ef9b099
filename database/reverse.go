package database

import (
	"sort"

	"github.com/pkg/errors"

	"scoutdb/model"
	"scoutdb/spatial"
)

// ReverseLookupResult describes the hierarchy enclosing one looked-up
// object. Besides the region the optional fields say how the object itself
// is known to the index.
type ReverseLookupResult struct {
	Object      model.ObjectFileRef
	AdminRegion *model.AdminRegion
	POI         *model.POI
	Location    *model.Location
	Address     *model.Address
}

type reverseSearchEntry struct {
	object model.ObjectFileRef
	coords []model.GeoCoord
}

// adminRegionReverseLookupVisitor walks the region forest, reports direct
// identity matches and collects every region whose outer ring contains one of
// the looked-up geometries. Only regions with a containment candidate are
// descended into.
type adminRegionReverseLookupVisitor struct {
	database      *Database
	searchEntries []reverseSearchEntry
	results       *[]ReverseLookupResult
	adminRegions  map[model.FileOffset]*model.AdminRegion
}

func (v *adminRegionReverseLookupVisitor) Visit(region *model.AdminRegion) (model.Action, error) {
	area, err := v.database.GetAreaByOffset(region.Object.Offset)
	if err != nil {
		return model.ActionStop, errors.Wrapf(err, "unable to load area of region '%s'", region.Name)
	}

	for _, entry := range v.searchEntries {
		if region.Match(entry.object) {
			*v.results = append(*v.results, ReverseLookupResult{
				Object:      entry.object,
				AdminRegion: region,
			})
		}
	}

	candidate := false
	for r := range area.Rings {
		if area.Rings[r].Id != model.OuterRingId {
			continue
		}

		for _, entry := range v.searchEntries {
			if len(entry.coords) == 1 {
				if !spatial.CoordInRing(entry.coords[0], area.Rings[r].Nodes) {
					continue
				}
			} else {
				if !spatial.PolylinePartlyInRing(entry.coords, area.Rings[r].Nodes) {
					continue
				}
			}

			candidate = true
			break
		}

		if candidate {
			break
		}
	}

	if candidate {
		v.adminRegions[region.RegionOffset] = region
		return model.ActionVisitChildren, nil
	}

	return model.ActionSkipChildren, nil
}

type reverseLoc struct {
	region   *model.AdminRegion
	location *model.Location
}

// locationReverseLookupVisitor matches POIs and locations of the candidate
// regions against the looked-up objects, and records every traversed location
// for the address stage.
type locationReverseLookupVisitor struct {
	objects   map[model.ObjectFileRef]struct{}
	results   *[]ReverseLookupResult
	locations []reverseLoc
}

func (v *locationReverseLookupVisitor) VisitPOI(region *model.AdminRegion, poi *model.POI) (bool, error) {
	if _, ok := v.objects[poi.Object]; ok {
		*v.results = append(*v.results, ReverseLookupResult{
			Object:      poi.Object,
			AdminRegion: region,
			POI:         poi,
		})
	}
	return true, nil
}

func (v *locationReverseLookupVisitor) VisitLocation(region *model.AdminRegion, location *model.Location) (bool, error) {
	v.locations = append(v.locations, reverseLoc{region: region, location: location})

	for _, object := range location.Objects {
		if _, ok := v.objects[object]; ok {
			*v.results = append(*v.results, ReverseLookupResult{
				Object:      object,
				AdminRegion: region,
				Location:    location,
			})
		}
	}

	return true, nil
}

type addressReverseLookupVisitor struct {
	objects map[model.ObjectFileRef]struct{}
	results *[]ReverseLookupResult
}

func (v *addressReverseLookupVisitor) Visit(region *model.AdminRegion, location *model.Location, address *model.Address) (bool, error) {
	if _, ok := v.objects[address.Object]; ok {
		*v.results = append(*v.results, ReverseLookupResult{
			Object:      address.Object,
			AdminRegion: region,
			Location:    location,
			Address:     address,
		})
	}
	return true, nil
}

// ReverseLookupObjects returns the admin region / location / address
// hierarchy enclosing each given object. An object may produce several
// results (e.g. a node inside nested regions); results appear in discovery
// order and are not deduplicated.
func (d *Database) ReverseLookupObjects(objects []model.ObjectFileRef) ([]ReverseLookupResult, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}

	results := []ReverseLookupResult{}

	adminRegionVisitor := &adminRegionReverseLookupVisitor{
		database:     d,
		results:      &results,
		adminRegions: map[model.FileOffset]*model.AdminRegion{},
	}

	for _, object := range objects {
		switch object.Type {
		case model.RefNode:
			node, err := d.GetNodeByOffset(object.Offset)
			if err != nil {
				return nil, err
			}
			adminRegionVisitor.searchEntries = append(adminRegionVisitor.searchEntries, reverseSearchEntry{
				object: object,
				coords: []model.GeoCoord{node.Coord},
			})
		case model.RefArea:
			area, err := d.GetAreaByOffset(object.Offset)
			if err != nil {
				return nil, err
			}
			for r := range area.Rings {
				if area.Rings[r].Id == model.OuterRingId {
					adminRegionVisitor.searchEntries = append(adminRegionVisitor.searchEntries, reverseSearchEntry{
						object: object,
						coords: area.Rings[r].Nodes,
					})
				}
			}
		case model.RefWay:
			way, err := d.GetWayByOffset(object.Offset)
			if err != nil {
				return nil, err
			}
			adminRegionVisitor.searchEntries = append(adminRegionVisitor.searchEntries, reverseSearchEntry{
				object: object,
				coords: way.Nodes,
			})
		default:
			return nil, errors.Errorf("cannot reverse-lookup invalid object reference %s", object)
		}
	}

	if err := d.VisitAdminRegions(adminRegionVisitor); err != nil {
		return nil, err
	}

	if len(adminRegionVisitor.adminRegions) == 0 {
		return results, nil
	}

	objectSet := make(map[model.ObjectFileRef]struct{}, len(objects))
	for _, object := range objects {
		objectSet[object] = struct{}{}
	}

	locationVisitor := &locationReverseLookupVisitor{
		objects: objectSet,
		results: &results,
	}

	// Candidate regions in offset order for deterministic output.
	regionOffsets := make([]model.FileOffset, 0, len(adminRegionVisitor.adminRegions))
	for offset := range adminRegionVisitor.adminRegions {
		regionOffsets = append(regionOffsets, offset)
	}
	sort.Slice(regionOffsets, func(i, j int) bool { return regionOffsets[i] < regionOffsets[j] })

	for _, offset := range regionOffsets {
		region := adminRegionVisitor.adminRegions[offset]
		if err := d.locationIndex.VisitAdminRegionLocations(region, locationVisitor, false); err != nil {
			return nil, err
		}
	}

	addressVisitor := &addressReverseLookupVisitor{
		objects: objectSet,
		results: &results,
	}

	for _, loc := range locationVisitor.locations {
		if err := d.VisitLocationAddresses(loc.region, loc.location, addressVisitor); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// ReverseLookupObject is the single-object variant of ReverseLookupObjects.
func (d *Database) ReverseLookupObject(object model.ObjectFileRef) ([]ReverseLookupResult, error) {
	return d.ReverseLookupObjects([]model.ObjectFileRef{object})
}
