package database

import (
	"path"
	"sort"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"

	"scoutdb/datafile"
	"scoutdb/fileio"
	"scoutdb/locidx"
	"scoutdb/model"
	"scoutdb/spatial"
)

// ErrNotOpen marks a retrieval on a database that is not (or no longer) open.
var ErrNotOpen = errors.New("database is not open")

// ErrAborted marks a query stopped by its breaker. Callers distinguish a real
// failure from cancellation via Breaker.IsAborted.
var ErrAborted = errors.New("query aborted")

const BoundingDataFilename = "bounding.dat"
const TypesDataFilename = "types.dat"

// Database is the read-only query façade over one dataset directory. All
// retrievals are safe for concurrent use once the database is open.
type Database struct {
	parameter        DatabaseParameter
	path             string
	isOpen           bool
	debugPerformance bool

	bound      orb.Bound
	typeConfig *model.TypeConfig

	nodeDataFile *datafile.DataFile[*model.Node]
	wayDataFile  *datafile.DataFile[*model.Way]
	areaDataFile *datafile.DataFile[*model.Area]

	areaNodeIndex *spatial.AreaNodeIndex
	areaWayIndex  *spatial.AreaWayIndex
	areaAreaIndex *spatial.AreaAreaIndex
	waterIndex    *spatial.WaterIndex

	optimizeAreasLowZoom *spatial.OptimizeLowZoom[*model.Area]
	optimizeWaysLowZoom  *spatial.OptimizeLowZoom[*model.Way]

	locationIndex *locidx.LocationIndex
}

func NewDatabase(parameter DatabaseParameter) *Database {
	return &Database{
		parameter:        parameter,
		debugPerformance: parameter.DebugPerformance,
		nodeDataFile:     datafile.NewDataFile("nodes.dat", parameter.NodeCacheSize, model.ReadNode),
		wayDataFile:      datafile.NewDataFile("ways.dat", parameter.WayCacheSize, model.ReadWay),
		areaDataFile:     datafile.NewDataFile("areas.dat", parameter.AreaCacheSize, model.ReadArea),
		areaNodeIndex:    spatial.NewAreaNodeIndex(parameter.AreaNodeIndexCacheSize),
		areaWayIndex:     spatial.NewAreaWayIndex(parameter.AreaNodeIndexCacheSize),
		areaAreaIndex:    spatial.NewAreaAreaIndex(parameter.AreaAreaIndexCacheSize),
		waterIndex:       spatial.NewWaterIndex(),
		optimizeAreasLowZoom: spatial.NewOptimizeLowZoom(
			spatial.AreasOptFilename, model.ReadArea),
		optimizeWaysLowZoom: spatial.NewOptimizeLowZoom(
			spatial.WaysOptFilename, model.ReadWay),
		locationIndex: locidx.NewLocationIndex(),
	}
}

// Open mounts all files of the dataset directory. On any failure the
// database stays closed and already acquired resources are released again.
func (d *Database) Open(directory string) error {
	if d.isOpen {
		return errors.Errorf("database %s is already open", d.path)
	}

	d.path = directory

	err := d.open(directory)
	if err != nil {
		d.closeFiles()
		return err
	}

	d.isOpen = true
	return nil
}

func (d *Database) open(directory string) error {
	typeScanner, err := fileio.NewScanner(path.Join(directory, TypesDataFilename), fileio.ModeSequential)
	if err != nil {
		return errors.Wrapf(err, "cannot open '%s'", TypesDataFilename)
	}
	d.typeConfig, err = model.ReadTypeConfig(typeScanner)
	typeScanner.Close()
	if err != nil {
		return errors.Wrapf(err, "cannot load '%s'", TypesDataFilename)
	}

	boundScanner, err := fileio.NewScanner(path.Join(directory, BoundingDataFilename), fileio.ModeSequential)
	if err != nil {
		return errors.Wrapf(err, "cannot open '%s'", BoundingDataFilename)
	}
	minLatDat := boundScanner.ReadVarUint()
	minLonDat := boundScanner.ReadVarUint()
	maxLatDat := boundScanner.ReadVarUint()
	maxLonDat := boundScanner.ReadVarUint()
	scanErr := boundScanner.Err()
	boundScanner.Close()
	if scanErr != nil {
		return errors.Wrapf(scanErr, "error reading '%s'", BoundingDataFilename)
	}

	d.bound = orb.Bound{
		Min: orb.Point{
			float64(minLonDat)/fileio.ConversionFactor - 180.0,
			float64(minLatDat)/fileio.ConversionFactor - 90.0,
		},
		Max: orb.Point{
			float64(maxLonDat)/fileio.ConversionFactor - 180.0,
			float64(maxLatDat)/fileio.ConversionFactor - 90.0,
		},
	}

	if err := d.nodeDataFile.Open(directory, fileio.ModeLowMemRandom); err != nil {
		return errors.Wrap(err, "cannot open 'nodes.dat'")
	}
	if err := d.areaDataFile.Open(directory, fileio.ModeLowMemRandom); err != nil {
		return errors.Wrap(err, "cannot open 'areas.dat'")
	}
	if err := d.wayDataFile.Open(directory, fileio.ModeLowMemRandom); err != nil {
		return errors.Wrap(err, "cannot open 'ways.dat'")
	}

	if err := d.optimizeAreasLowZoom.Open(directory); err != nil {
		return errors.Wrap(err, "cannot load area low zoom optimizations")
	}
	if err := d.optimizeWaysLowZoom.Open(directory); err != nil {
		return errors.Wrap(err, "cannot load way low zoom optimizations")
	}

	if err := d.areaAreaIndex.Load(directory); err != nil {
		return errors.Wrap(err, "cannot load area area index")
	}
	if err := d.areaNodeIndex.Load(directory); err != nil {
		return errors.Wrap(err, "cannot load area node index")
	}
	if err := d.areaWayIndex.Load(directory); err != nil {
		return errors.Wrap(err, "cannot load area way index")
	}
	if err := d.waterIndex.Load(directory); err != nil {
		return errors.Wrap(err, "cannot load water index")
	}
	if err := d.locationIndex.Load(directory); err != nil {
		return errors.Wrap(err, "cannot load location index")
	}

	return nil
}

func (d *Database) IsOpen() bool {
	return d.isOpen
}

// Close releases every file. It is idempotent.
func (d *Database) Close() {
	d.closeFiles()
	d.isOpen = false
}

func (d *Database) closeFiles() {
	d.nodeDataFile.Close()
	d.wayDataFile.Close()
	d.areaDataFile.Close()

	d.optimizeWaysLowZoom.Close()
	d.optimizeAreasLowZoom.Close()
	d.areaAreaIndex.Close()
	d.areaNodeIndex.Close()
	d.areaWayIndex.Close()
	d.waterIndex.Close()
	d.locationIndex.Close()
}

// FlushCache empties all blob caches without closing the database.
func (d *Database) FlushCache() {
	d.nodeDataFile.FlushCache()
	d.areaDataFile.FlushCache()
	d.wayDataFile.FlushCache()
}

func (d *Database) GetPath() string {
	return d.path
}

func (d *Database) GetTypeConfig() *model.TypeConfig {
	return d.typeConfig
}

// GetBoundingBox returns the immutable boundary of the dataset.
func (d *Database) GetBoundingBox() (orb.Bound, error) {
	if !d.isOpen {
		return orb.Bound{}, ErrNotOpen
	}
	return d.bound, nil
}

func (d *Database) getObjectsNodes(parameter AreaSearchParameter, nodeTypes model.TypeSet, bbox orb.Bound) ([]*model.Node, error) {
	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	var offsets []model.FileOffset
	indexStart := time.Now()

	if nodeTypes.HasTypes() {
		var err error
		offsets, err = d.areaNodeIndex.GetOffsets(bbox, nodeTypes, parameter.MaxNodes)
		if err != nil {
			return nil, errors.Wrap(err, "error getting nodes from area node index")
		}
	}

	indexTime := time.Since(indexStart)

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	loadStart := time.Now()

	nodes, err := d.nodeDataFile.GetByOffsets(offsets)
	if err != nil {
		return nil, errors.Wrap(err, "error reading nodes in area")
	}

	if d.debugPerformance {
		sigolo.Debugf("node query: index %s, load %s", indexTime, time.Since(loadStart))
	}

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	return nodes, nil
}

func (d *Database) getObjectsWays(parameter AreaSearchParameter, wayTypes []model.TypeSet, magnification model.Magnification, bbox orb.Bound) ([]*model.Way, error) {
	internalWayTypes := make([]model.TypeSet, 0, len(wayTypes))
	for _, types := range wayTypes {
		internalWayTypes = append(internalWayTypes, types.Clone())
	}

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	var ways []*model.Way
	optimizedStart := time.Now()

	if len(internalWayTypes) > 0 &&
		parameter.UseLowZoomOptimization &&
		d.optimizeWaysLowZoom.HasOptimizations(magnification) {
		for _, types := range internalWayTypes {
			optimized, err := d.optimizeWaysLowZoom.GetObjects(bbox, magnification, parameter.MaxWays, types)
			if err != nil {
				return nil, errors.Wrap(err, "error getting ways from low zoom optimizations")
			}
			ways = append(ways, optimized...)
		}
	}

	optimizedTime := time.Since(optimizedStart)

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	var offsets []model.FileOffset
	indexStart := time.Now()

	if len(internalWayTypes) > 0 {
		var err error
		offsets, err = d.areaWayIndex.GetOffsets(bbox, internalWayTypes, parameter.MaxWays)
		if err != nil {
			return nil, errors.Wrap(err, "error getting ways from area way index")
		}
	}

	indexTime := time.Since(indexStart)

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	loadStart := time.Now()

	if len(offsets) > 0 {
		loaded, err := d.wayDataFile.GetByOffsets(offsets)
		if err != nil {
			return nil, errors.Wrap(err, "error reading ways in area")
		}
		ways = append(ways, loaded...)
	}

	if d.debugPerformance {
		sigolo.Debugf("way query: optimized %s, index %s, load %s", optimizedTime, indexTime, time.Since(loadStart))
	}

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	return ways, nil
}

func (d *Database) getObjectsAreas(parameter AreaSearchParameter, areaTypes model.TypeSet, magnification model.Magnification, bbox orb.Bound) ([]*model.Area, error) {
	internalAreaTypes := areaTypes.Clone()

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	var areas []*model.Area
	optimizedStart := time.Now()

	if internalAreaTypes.HasTypes() &&
		parameter.UseLowZoomOptimization &&
		d.optimizeAreasLowZoom.HasOptimizations(magnification) {
		// The way cap bounds this call, matching the long-standing behavior
		// of the reference data path.
		optimized, err := d.optimizeAreasLowZoom.GetObjects(bbox, magnification, parameter.MaxWays, internalAreaTypes)
		if err != nil {
			return nil, errors.Wrap(err, "error getting areas from low zoom optimizations")
		}
		areas = append(areas, optimized...)
	}

	optimizedTime := time.Since(optimizedStart)

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	var offsets []model.FileOffset
	indexStart := time.Now()

	if internalAreaTypes.HasTypes() {
		var err error
		offsets, err = d.areaAreaIndex.GetOffsets(bbox,
			magnification.Level()+parameter.MaxAreaLevel,
			internalAreaTypes,
			parameter.MaxAreas)
		if err != nil {
			return nil, errors.Wrap(err, "error getting areas from area index")
		}
	}

	indexTime := time.Since(indexStart)

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	loadStart := time.Now()

	if len(offsets) > 0 {
		loaded, err := d.areaDataFile.GetByOffsets(offsets)
		if err != nil {
			return nil, errors.Wrap(err, "error reading areas in area")
		}
		areas = append(areas, loaded...)
	}

	if d.debugPerformance {
		sigolo.Debugf("area query: optimized %s, index %s, load %s", optimizedTime, indexTime, time.Since(loadStart))
	}

	if parameter.IsAborted() {
		return nil, ErrAborted
	}

	return areas, nil
}

// GetObjects retrieves all nodes, ways and areas of the selected types whose
// index tiles intersect the bounding box, suitable for rendering the box at
// the given magnification. The three retrievals run concurrently when
// UseMultithreading is set; serial and parallel execution return set-equal
// results.
func (d *Database) GetObjects(parameter AreaSearchParameter, magnification model.Magnification, bbox orb.Bound,
	nodeTypes model.TypeSet, wayTypes []model.TypeSet, areaTypes model.TypeSet) ([]*model.Node, []*model.Way, []*model.Area, error) {

	if !d.isOpen {
		return nil, nil, nil, ErrNotOpen
	}

	if parameter.IsAborted() {
		return nil, nil, nil, ErrAborted
	}

	var nodes []*model.Node
	var ways []*model.Way
	var areas []*model.Area
	var nodesErr, waysErr, areasErr error

	if parameter.UseMultithreading {
		var wg conc.WaitGroup
		wg.Go(func() {
			nodes, nodesErr = d.getObjectsNodes(parameter, nodeTypes, bbox)
		})
		wg.Go(func() {
			ways, waysErr = d.getObjectsWays(parameter, wayTypes, magnification, bbox)
		})
		wg.Go(func() {
			areas, areasErr = d.getObjectsAreas(parameter, areaTypes, magnification, bbox)
		})
		wg.Wait()
	} else {
		nodes, nodesErr = d.getObjectsNodes(parameter, nodeTypes, bbox)
		ways, waysErr = d.getObjectsWays(parameter, wayTypes, magnification, bbox)
		areas, areasErr = d.getObjectsAreas(parameter, areaTypes, magnification, bbox)
	}

	if nodesErr != nil {
		return nil, nil, nil, nodesErr
	}
	if waysErr != nil {
		return nil, nil, nil, waysErr
	}
	if areasErr != nil {
		return nil, nil, nil, areasErr
	}

	return nodes, ways, areas, nil
}

// GetObjectsInBound retrieves all objects of the given types within the
// bounding box without caps, magnification handling or low-zoom shortcuts.
func (d *Database) GetObjectsInBound(bbox orb.Bound, types model.TypeSet) ([]*model.Node, []*model.Way, []*model.Area, error) {
	if !d.isOpen {
		return nil, nil, nil, ErrNotOpen
	}

	nodeOffsets, err := d.areaNodeIndex.GetOffsets(bbox, types, maxInt)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error getting nodes from area node index")
	}

	wayOffsets, err := d.areaWayIndex.GetOffsets(bbox, []model.TypeSet{types}, maxInt)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error getting ways from area way index")
	}

	areaOffsets, err := d.areaAreaIndex.GetOffsets(bbox, maxLevel, types, maxInt)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error getting areas from area index")
	}

	sort.Slice(nodeOffsets, func(i, j int) bool { return nodeOffsets[i] < nodeOffsets[j] })
	sort.Slice(wayOffsets, func(i, j int) bool { return wayOffsets[i] < wayOffsets[j] })
	sort.Slice(areaOffsets, func(i, j int) bool { return areaOffsets[i] < areaOffsets[j] })

	nodes, err := d.nodeDataFile.GetByOffsets(nodeOffsets)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error reading nodes in area")
	}

	ways, err := d.wayDataFile.GetByOffsets(wayOffsets)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error reading ways in area")
	}

	areas, err := d.areaDataFile.GetByOffsets(areaOffsets)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error reading areas in area")
	}

	return nodes, ways, areas, nil
}

const maxInt = int(^uint(0) >> 1)

// maxLevel is deep enough to reach every stored area-area index level.
const maxLevel = uint32(30)

// GetObjectsByRef resolves a mixed set of object references into per-kind
// offset maps.
func (d *Database) GetObjectsByRef(objects []model.ObjectFileRef) (map[model.FileOffset]*model.Node, map[model.FileOffset]*model.Area, map[model.FileOffset]*model.Way, error) {
	if !d.isOpen {
		return nil, nil, nil, ErrNotOpen
	}

	nodeOffsets := map[model.FileOffset]struct{}{}
	areaOffsets := map[model.FileOffset]struct{}{}
	wayOffsets := map[model.FileOffset]struct{}{}

	for _, object := range objects {
		switch object.Type {
		case model.RefNode:
			nodeOffsets[object.Offset] = struct{}{}
		case model.RefArea:
			areaOffsets[object.Offset] = struct{}{}
		case model.RefWay:
			wayOffsets[object.Offset] = struct{}{}
		}
	}

	nodes, err := d.nodeDataFile.GetByOffsetSet(nodeOffsets)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error resolving node references")
	}
	areas, err := d.areaDataFile.GetByOffsetSet(areaOffsets)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error resolving area references")
	}
	ways, err := d.wayDataFile.GetByOffsetSet(wayOffsets)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error resolving way references")
	}

	return nodes, areas, ways, nil
}

// GetGroundTiles returns the land/water/coast classification of all raster
// cells intersecting the bounding box.
func (d *Database) GetGroundTiles(bbox orb.Bound, magnification model.Magnification) ([]spatial.GroundTile, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.waterIndex.GetRegions(bbox, magnification)
}

func (d *Database) GetNodeByOffset(offset model.FileOffset) (*model.Node, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.nodeDataFile.GetByOffset(offset)
}

func (d *Database) GetNodesByOffset(offsets []model.FileOffset) ([]*model.Node, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.nodeDataFile.GetByOffsets(offsets)
}

func (d *Database) GetNodesByOffsetSet(offsets map[model.FileOffset]struct{}) (map[model.FileOffset]*model.Node, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.nodeDataFile.GetByOffsetSet(offsets)
}

func (d *Database) GetAreaByOffset(offset model.FileOffset) (*model.Area, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.areaDataFile.GetByOffset(offset)
}

func (d *Database) GetAreasByOffset(offsets []model.FileOffset) ([]*model.Area, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.areaDataFile.GetByOffsets(offsets)
}

func (d *Database) GetAreasByOffsetSet(offsets map[model.FileOffset]struct{}) (map[model.FileOffset]*model.Area, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.areaDataFile.GetByOffsetSet(offsets)
}

func (d *Database) GetWayByOffset(offset model.FileOffset) (*model.Way, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.wayDataFile.GetByOffset(offset)
}

func (d *Database) GetWaysByOffset(offsets []model.FileOffset) ([]*model.Way, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.wayDataFile.GetByOffsets(offsets)
}

func (d *Database) GetWaysByOffsetSet(offsets map[model.FileOffset]struct{}) (map[model.FileOffset]*model.Way, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.wayDataFile.GetByOffsetSet(offsets)
}

// VisitAdminRegions walks the admin region forest with the given visitor.
func (d *Database) VisitAdminRegions(visitor model.AdminRegionVisitor) error {
	if !d.isOpen {
		return ErrNotOpen
	}
	return d.locationIndex.VisitAdminRegions(visitor)
}

// VisitAdminRegionLocations enumerates the POIs and locations of the region
// and its subregions.
func (d *Database) VisitAdminRegionLocations(region *model.AdminRegion, visitor model.LocationVisitor) error {
	if !d.isOpen {
		return ErrNotOpen
	}
	return d.locationIndex.VisitAdminRegionLocations(region, visitor, true)
}

// VisitLocationAddresses enumerates the addresses of the location.
func (d *Database) VisitLocationAddresses(region *model.AdminRegion, location *model.Location, visitor model.AddressVisitor) error {
	if !d.isOpen {
		return ErrNotOpen
	}
	return d.locationIndex.VisitLocationAddresses(region, location, visitor)
}

// ResolveAdminRegionHierachie materializes the chain of enclosing regions of
// the given region as an owned offset-keyed map.
func (d *Database) ResolveAdminRegionHierachie(region *model.AdminRegion) (map[model.FileOffset]*model.AdminRegion, error) {
	if !d.isOpen {
		return nil, ErrNotOpen
	}
	return d.locationIndex.ResolveAdminRegionHierachie(region)
}

// DumpStatistics logs cache and index counters of all layers.
func (d *Database) DumpStatistics() {
	d.nodeDataFile.DumpStatistics()
	d.areaDataFile.DumpStatistics()
	d.wayDataFile.DumpStatistics()

	d.areaAreaIndex.DumpStatistics()
	d.areaNodeIndex.DumpStatistics()
	d.areaWayIndex.DumpStatistics()
	d.locationIndex.DumpStatistics()
	d.waterIndex.DumpStatistics()
	d.optimizeAreasLowZoom.DumpStatistics()
	d.optimizeWaysLowZoom.DumpStatistics()
}

// CacheStatistics exposes the blob cache counters, e.g. for metrics exports.
func (d *Database) CacheStatistics() (nodeHits, nodeMisses, wayHits, wayMisses, areaHits, areaMisses uint64) {
	nodeHits, nodeMisses, _ = d.nodeDataFile.CacheStatistics()
	wayHits, wayMisses, _ = d.wayDataFile.CacheStatistics()
	areaHits, areaMisses, _ = d.areaDataFile.CacheStatistics()
	return
}
