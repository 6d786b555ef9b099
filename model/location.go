package model

// RegionAlias is an alternative name of an admin region (e.g. a postal code),
// bound to a node in nodes.dat.
type RegionAlias struct {
	Name         string
	ObjectOffset FileOffset
}

// AdminRegion is one administrative subdivision. Regions form a forest; the
// parent link is stored as an offset into location.idx, never as a pointer.
type AdminRegion struct {
	RegionOffset FileOffset
	ParentOffset FileOffset

	Object ObjectFileRef
	Name   string

	// AliasObject and AliasName are only filled on results produced from an
	// alias match; the stored record leaves them empty.
	AliasObject ObjectFileRef
	AliasName   string

	Aliases []RegionAlias
}

// Match reports whether the given object is the region itself, its alias
// object or one of its alias nodes.
func (r *AdminRegion) Match(object ObjectFileRef) bool {
	if r.Object == object {
		return true
	}

	if r.AliasObject.Valid() && r.AliasObject == object {
		return true
	}

	if object.Type == RefNode {
		for _, alias := range r.Aliases {
			if alias.ObjectOffset == object.Offset {
				return true
			}
		}
	}

	return false
}

// POI is a named point-of-interest attached directly to an admin region.
type POI struct {
	Name   string
	Object ObjectFileRef
}

// Location is a street or equivalent within an admin region. A location may
// be backed by several objects (e.g. the way segments of one street).
type Location struct {
	LocationOffset FileOffset
	Name           string
	Objects        []ObjectFileRef

	// AddressesOffset points into address.dat, 0 when the location has no
	// addresses.
	AddressesOffset FileOffset
	AddressCount    uint32
}

// Address is a house number or equivalent within a location.
type Address struct {
	AddressOffset FileOffset
	Name          string
	Object        ObjectFileRef
}

// Action is the control directive an AdminRegionVisitor returns for each
// visited region.
type Action int

const (
	// ActionVisitChildren descends into the children of the region.
	ActionVisitChildren Action = iota
	// ActionSkipChildren keeps the region but does not recurse.
	ActionSkipChildren
	// ActionStop halts the whole traversal.
	ActionStop
)

// AdminRegionVisitor is called for every traversed admin region. Returning an
// error aborts the traversal and propagates the failure.
type AdminRegionVisitor interface {
	Visit(region *AdminRegion) (Action, error)
}

// LocationVisitor is called for the POIs and locations of a region.
// Returning false stops further enumeration within the region.
type LocationVisitor interface {
	VisitPOI(region *AdminRegion, poi *POI) (bool, error)
	VisitLocation(region *AdminRegion, location *Location) (bool, error)
}

// AddressVisitor is called for the addresses of a location. Returning false
// stops further enumeration.
type AddressVisitor interface {
	Visit(region *AdminRegion, location *Location, address *Address) (bool, error)
}
