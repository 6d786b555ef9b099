package locidx

import (
	"path"
	"sync"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"

	"scoutdb/fileio"
	"scoutdb/model"
)

const (
	LocationIndexFilename = "location.idx"
	AddressDataFilename   = "address.dat"
)

// errStopTraversal signals a regular early termination requested by a
// visitor. It never leaves this package.
var errStopTraversal = errors.New("traversal stopped")

// regionRecord is one fully decoded region node of the index file.
type regionRecord struct {
	region       *model.AdminRegion
	childOffsets []model.FileOffset
	pois         []model.POI
	locations    []model.Location
}

// LocationIndex is the hierarchical admin-region / location / address index.
// Regions are loaded one at a time while visitors steer the traversal.
type LocationIndex struct {
	scanner        *fileio.Scanner
	addressScanner *fileio.Scanner
	mutex          sync.Mutex

	rootOffsets []model.FileOffset

	visitedRegions uint64
}

func NewLocationIndex() *LocationIndex {
	return &LocationIndex{}
}

func (i *LocationIndex) Load(directory string) error {
	scanner, err := fileio.NewScanner(path.Join(directory, LocationIndexFilename), fileio.ModeMmap)
	if err != nil {
		return err
	}

	addressScanner, err := fileio.NewScanner(path.Join(directory, AddressDataFilename), fileio.ModeMmap)
	if err != nil {
		scanner.Close()
		return err
	}

	i.scanner = scanner
	i.addressScanner = addressScanner

	rootCount := scanner.ReadU32()
	i.rootOffsets = make([]model.FileOffset, 0, rootCount)
	for n := uint32(0); n < rootCount; n++ {
		i.rootOffsets = append(i.rootOffsets, scanner.ReadU64())
	}

	if scanner.HasError() {
		err := scanner.Err()
		i.Close()
		return errors.Wrapf(err, "error reading location index header")
	}

	return nil
}

func (i *LocationIndex) Close() error {
	i.rootOffsets = nil

	var firstErr error
	if i.scanner != nil {
		firstErr = i.scanner.Close()
		i.scanner = nil
	}
	if i.addressScanner != nil {
		if err := i.addressScanner.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		i.addressScanner = nil
	}

	return firstErr
}

func (i *LocationIndex) IsLoaded() bool {
	return i.scanner != nil
}

// loadRegion decodes the region record at the given offset under the index
// lock.
func (i *LocationIndex) loadRegion(offset model.FileOffset) (*regionRecord, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	s := i.scanner
	s.SetPos(int64(offset))

	region := &model.AdminRegion{RegionOffset: offset}
	region.ParentOffset = s.ReadU64()
	region.Object = model.ReadObjectFileRef(s)
	region.Name = s.ReadString()

	aliasCount := s.ReadVarUint()
	for n := uint64(0); n < aliasCount; n++ {
		alias := model.RegionAlias{}
		alias.Name = s.ReadString()
		alias.ObjectOffset = s.ReadVarUint()
		region.Aliases = append(region.Aliases, alias)
	}

	record := &regionRecord{region: region}

	childCount := s.ReadVarUint()
	for n := uint64(0); n < childCount; n++ {
		record.childOffsets = append(record.childOffsets, s.ReadVarUint())
	}

	poiCount := s.ReadVarUint()
	for n := uint64(0); n < poiCount; n++ {
		poi := model.POI{}
		poi.Name = s.ReadString()
		poi.Object = model.ReadObjectFileRef(s)
		record.pois = append(record.pois, poi)
	}

	locationCount := s.ReadVarUint()
	for n := uint64(0); n < locationCount; n++ {
		location := model.Location{LocationOffset: model.FileOffset(s.GetPos())}
		location.Name = s.ReadString()

		objectCount := s.ReadVarUint()
		for o := uint64(0); o < objectCount; o++ {
			location.Objects = append(location.Objects, model.ReadObjectFileRef(s))
		}

		location.AddressesOffset = s.ReadVarUint()
		location.AddressCount = uint32(s.ReadVarUint())

		record.locations = append(record.locations, location)
	}

	if s.HasError() {
		return nil, errors.Wrapf(s.Err(), "error reading region record at offset %d", offset)
	}

	i.visitedRegions++

	return record, nil
}

// VisitAdminRegions walks the region forest in stored order, honoring the
// visitor's control directive for every region.
func (i *LocationIndex) VisitAdminRegions(visitor model.AdminRegionVisitor) error {
	if !i.IsLoaded() {
		return errors.Errorf("location index is not loaded")
	}

	for _, offset := range i.rootOffsets {
		err := i.visitRegionTree(offset, visitor)
		if err == errStopTraversal {
			return nil
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (i *LocationIndex) visitRegionTree(offset model.FileOffset, visitor model.AdminRegionVisitor) error {
	record, err := i.loadRegion(offset)
	if err != nil {
		return err
	}

	action, err := visitor.Visit(record.region)
	if err != nil {
		return err
	}

	switch action {
	case model.ActionStop:
		return errStopTraversal
	case model.ActionSkipChildren:
		return nil
	}

	for _, childOffset := range record.childOffsets {
		if err := i.visitRegionTree(childOffset, visitor); err != nil {
			return err
		}
	}

	return nil
}

// VisitAdminRegionLocations enumerates the POIs and locations of the region,
// and of all subregions when recursive is set. The region object passed to
// the visitor is always the region the entry is stored in.
func (i *LocationIndex) VisitAdminRegionLocations(region *model.AdminRegion, visitor model.LocationVisitor, recursive bool) error {
	if !i.IsLoaded() {
		return errors.Errorf("location index is not loaded")
	}

	err := i.visitRegionLocations(region.RegionOffset, visitor, recursive)
	if err == errStopTraversal {
		return nil
	}
	return err
}

func (i *LocationIndex) visitRegionLocations(offset model.FileOffset, visitor model.LocationVisitor, recursive bool) error {
	record, err := i.loadRegion(offset)
	if err != nil {
		return err
	}

	for n := range record.pois {
		goOn, err := visitor.VisitPOI(record.region, &record.pois[n])
		if err != nil {
			return err
		}
		if !goOn {
			return errStopTraversal
		}
	}

	for n := range record.locations {
		goOn, err := visitor.VisitLocation(record.region, &record.locations[n])
		if err != nil {
			return err
		}
		if !goOn {
			return errStopTraversal
		}
	}

	if !recursive {
		return nil
	}

	for _, childOffset := range record.childOffsets {
		if err := i.visitRegionLocations(childOffset, visitor, true); err != nil {
			return err
		}
	}

	return nil
}

// VisitLocationAddresses enumerates the addresses of one location.
func (i *LocationIndex) VisitLocationAddresses(region *model.AdminRegion, location *model.Location, visitor model.AddressVisitor) error {
	if !i.IsLoaded() {
		return errors.Errorf("location index is not loaded")
	}

	if location.AddressCount == 0 {
		return nil
	}

	addresses, err := i.readAddresses(location)
	if err != nil {
		return err
	}

	for n := range addresses {
		goOn, err := visitor.Visit(region, location, &addresses[n])
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
	}

	return nil
}

func (i *LocationIndex) readAddresses(location *model.Location) ([]model.Address, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	s := i.addressScanner
	s.SetPos(int64(location.AddressesOffset))

	addresses := make([]model.Address, 0, location.AddressCount)
	for n := uint32(0); n < location.AddressCount; n++ {
		address := model.Address{AddressOffset: model.FileOffset(s.GetPos())}
		address.Name = s.ReadString()
		address.Object = model.ReadObjectFileRef(s)
		addresses = append(addresses, address)
	}

	if s.HasError() {
		return nil, errors.Wrapf(s.Err(), "error reading addresses of location %d", location.LocationOffset)
	}

	return addresses, nil
}

// ResolveAdminRegionHierachie walks the parent links of the given region and
// returns all enclosing regions keyed by their offset, the region itself
// included.
func (i *LocationIndex) ResolveAdminRegionHierachie(region *model.AdminRegion) (map[model.FileOffset]*model.AdminRegion, error) {
	if !i.IsLoaded() {
		return nil, errors.Errorf("location index is not loaded")
	}

	regions := map[model.FileOffset]*model.AdminRegion{
		region.RegionOffset: region,
	}

	parentOffset := region.ParentOffset
	for parentOffset != 0 {
		if _, ok := regions[parentOffset]; ok {
			return nil, errors.Wrapf(fileio.ErrCorruptData, "cycle in admin region hierarchy at offset %d", parentOffset)
		}

		record, err := i.loadRegion(parentOffset)
		if err != nil {
			return nil, err
		}

		regions[parentOffset] = record.region
		parentOffset = record.region.ParentOffset
	}

	return regions, nil
}

func (i *LocationIndex) DumpStatistics() {
	sigolo.Infof("%s: %d root regions, %d region loads", LocationIndexFilename, len(i.rootOffsets), i.visitedRegions)
}
