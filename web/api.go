package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scoutdb/database"
	"scoutdb/model"
)

var (
	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoutdb_http_requests_total",
			Help: "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)
	cacheHitsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scoutdb_blob_cache_hits",
			Help: "Blob cache hits by entity kind.",
		},
		[]string{"kind"},
	)
	cacheMissesGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scoutdb_blob_cache_misses",
			Help: "Blob cache misses by entity kind.",
		},
		[]string{"kind"},
	)
)

// StartServer opens the database and serves the query API until the process
// ends. TLS is used when both certificate files are configured.
func StartServer(config *Config, databasePath string) error {
	db := database.NewDatabase(config.DatabaseParameter())
	if err := db.Open(databasePath); err != nil {
		return err
	}

	router := initRouter(db)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)

	if config.TLSCertFile != "" && config.TLSKeyFile != "" {
		sigolo.Infof("Start server with TLS support on %s", address)
		return http.ListenAndServeTLS(address, config.TLSCertFile, config.TLSKeyFile, router)
	}

	sigolo.Infof("Start server on %s", address)
	return http.ListenAndServe(address, router)
}

func initRouter(db *database.Database) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/bound", handleWith(db, "bound", handleBound)).Methods(http.MethodGet)
	router.HandleFunc("/objects", handleWith(db, "objects", handleObjects)).Methods(http.MethodGet)
	router.HandleFunc("/search", handleWith(db, "search", handleSearch)).Methods(http.MethodGet)
	router.HandleFunc("/reverse", handleWith(db, "reverse", handleReverse)).Methods(http.MethodGet)
	router.HandleFunc("/groundtiles", handleWith(db, "groundtiles", handleGroundTiles)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

type handlerFunc func(db *database.Database, request *http.Request) (any, int, error)

func handleWith(db *database.Database, endpoint string, handler handlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")

		payload, status, err := handler(db, request)
		if err != nil {
			sigolo.Errorf("Error handling request to '/%s': %+v", endpoint, err)
			writer.WriteHeader(status)
			if _, writeErr := writer.Write([]byte(err.Error())); writeErr != nil {
				sigolo.Errorf("Error writing error response: %+v", writeErr)
			}
			requestCounter.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
			return
		}

		updateCacheMetrics(db)

		writer.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(writer).Encode(payload); err != nil {
			sigolo.Errorf("Error writing response for '/%s': %+v", endpoint, err)
		}
		requestCounter.WithLabelValues(endpoint, strconv.Itoa(http.StatusOK)).Inc()
	}
}

func updateCacheMetrics(db *database.Database) {
	nodeHits, nodeMisses, wayHits, wayMisses, areaHits, areaMisses := db.CacheStatistics()
	cacheHitsGauge.WithLabelValues("node").Set(float64(nodeHits))
	cacheMissesGauge.WithLabelValues("node").Set(float64(nodeMisses))
	cacheHitsGauge.WithLabelValues("way").Set(float64(wayHits))
	cacheMissesGauge.WithLabelValues("way").Set(float64(wayMisses))
	cacheHitsGauge.WithLabelValues("area").Set(float64(areaHits))
	cacheMissesGauge.WithLabelValues("area").Set(float64(areaMisses))
}

func parseBbox(request *http.Request) (orb.Bound, error) {
	var values [4]float64
	for i, name := range []string{"minLon", "minLat", "maxLon", "maxLat"} {
		raw := request.URL.Query().Get(name)
		if raw == "" {
			return orb.Bound{}, fmt.Errorf("missing query parameter '%s'", name)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid value '%s' for query parameter '%s'", raw, name)
		}
		values[i] = value
	}

	return orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	}, nil
}

func parseMagnification(request *http.Request) model.Magnification {
	raw := request.URL.Query().Get("mag")
	level, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return model.MagnificationForLevel(14)
	}
	return model.MagnificationForLevel(uint32(level))
}

func handleBound(db *database.Database, request *http.Request) (any, int, error) {
	bound, err := db.GetBoundingBox()
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return map[string]float64{
		"minLat": bound.Min[1],
		"minLon": bound.Min[0],
		"maxLat": bound.Max[1],
		"maxLon": bound.Max[0],
	}, http.StatusOK, nil
}

// typeSetFromQuery resolves the comma-separated "types" parameter against the
// type registry; without the parameter all indexable types are used.
func typeSetFromQuery(db *database.Database, request *http.Request) (model.TypeSet, error) {
	raw := request.URL.Query().Get("types")
	if raw == "" {
		return model.NewTypeSetOf(db.GetTypeConfig(), func(info model.TypeInfo) bool {
			return info.Indexable
		}), nil
	}

	byName := map[string]model.TypeId{}
	for _, info := range db.GetTypeConfig().Types() {
		byName[info.Name] = info.Id
	}

	types := model.NewTypeSet()
	for _, name := range strings.Split(raw, ",") {
		id, ok := byName[name]
		if !ok {
			return types, fmt.Errorf("unknown type '%s'", name)
		}
		types.SetType(id)
	}

	return types, nil
}

func handleObjects(db *database.Database, request *http.Request) (any, int, error) {
	bbox, err := parseBbox(request)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	types, err := typeSetFromQuery(db, request)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	parameter := database.NewAreaSearchParameter()
	parameter.UseMultithreading = true

	nodes, ways, areas, err := db.GetObjects(parameter, parseMagnification(request), bbox,
		types, []model.TypeSet{types}, types)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	collection := geojson.NewFeatureCollection()

	for _, node := range nodes {
		feature := geojson.NewFeature(node.Coord.Point())
		feature.Properties["offset"] = node.FileOffset
		feature.Properties["type"] = node.Type
		for _, tag := range node.Tags {
			feature.Properties[tag.Key] = tag.Value
		}
		collection.Append(feature)
	}

	for _, way := range ways {
		line := make(orb.LineString, 0, len(way.Nodes))
		for _, coord := range way.Nodes {
			line = append(line, coord.Point())
		}
		feature := geojson.NewFeature(line)
		feature.Properties["offset"] = way.FileOffset
		feature.Properties["type"] = way.Type
		collection.Append(feature)
	}

	for _, area := range areas {
		polygon := orb.Polygon{}
		for _, ring := range area.Rings {
			polygon = append(polygon, model.RingOf(ring.Nodes))
		}
		feature := geojson.NewFeature(polygon)
		feature.Properties["offset"] = area.FileOffset
		feature.Properties["type"] = area.Type()
		collection.Append(feature)
	}

	return collection, http.StatusOK, nil
}

type searchResponseEntry struct {
	AdminRegion        string `json:"adminRegion,omitempty"`
	AdminRegionQuality string `json:"adminRegionQuality,omitempty"`
	POI                string `json:"poi,omitempty"`
	POIQuality         string `json:"poiQuality,omitempty"`
	Location           string `json:"location,omitempty"`
	LocationQuality    string `json:"locationQuality,omitempty"`
	Address            string `json:"address,omitempty"`
	AddressQuality     string `json:"addressQuality,omitempty"`
	Object             string `json:"object,omitempty"`
}

func handleSearch(db *database.Database, request *http.Request) (any, int, error) {
	pattern := request.URL.Query().Get("q")
	if pattern == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("missing query parameter 'q'")
	}

	search := database.NewLocationSearch()
	if raw := request.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid value '%s' for query parameter 'limit'", raw)
		}
		search.Limit = limit
	}
	search.InitializeSearchEntries(pattern)

	result, err := db.SearchForLocations(search)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	entries := make([]searchResponseEntry, 0, len(result.Results))
	for _, entry := range result.Results {
		response := searchResponseEntry{}
		if entry.AdminRegion != nil {
			response.AdminRegion = entry.AdminRegion.Name
			response.AdminRegionQuality = entry.AdminRegionMatchQuality.String()
			response.Object = entry.AdminRegion.Object.String()
		}
		if entry.POI != nil {
			response.POI = entry.POI.Name
			response.POIQuality = entry.POIMatchQuality.String()
			response.Object = entry.POI.Object.String()
		}
		if entry.Location != nil {
			response.Location = entry.Location.Name
			response.LocationQuality = entry.LocationMatchQuality.String()
		}
		if entry.Address != nil {
			response.Address = entry.Address.Name
			response.AddressQuality = entry.AddressMatchQuality.String()
			response.Object = entry.Address.Object.String()
		}
		entries = append(entries, response)
	}

	return map[string]any{
		"results":      entries,
		"limitReached": result.LimitReached,
	}, http.StatusOK, nil
}

func parseObjectRef(raw string) (model.ObjectFileRef, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return model.ObjectFileRef{}, fmt.Errorf("invalid object reference '%s', expected <kind>:<offset>", raw)
	}

	var refType model.RefType
	switch parts[0] {
	case "node":
		refType = model.RefNode
	case "way":
		refType = model.RefWay
	case "area":
		refType = model.RefArea
	default:
		return model.ObjectFileRef{}, fmt.Errorf("unknown object kind '%s'", parts[0])
	}

	offset, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return model.ObjectFileRef{}, fmt.Errorf("invalid offset in object reference '%s'", raw)
	}

	return model.NewObjectFileRef(refType, offset), nil
}

func handleReverse(db *database.Database, request *http.Request) (any, int, error) {
	rawRefs := request.URL.Query()["ref"]
	if len(rawRefs) == 0 {
		return nil, http.StatusBadRequest, fmt.Errorf("missing query parameter 'ref'")
	}

	objects := make([]model.ObjectFileRef, 0, len(rawRefs))
	for _, raw := range rawRefs {
		object, err := parseObjectRef(raw)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		objects = append(objects, object)
	}

	results, err := db.ReverseLookupObjects(objects)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	type reverseResponseEntry struct {
		Object      string `json:"object"`
		AdminRegion string `json:"adminRegion,omitempty"`
		POI         string `json:"poi,omitempty"`
		Location    string `json:"location,omitempty"`
		Address     string `json:"address,omitempty"`
	}

	entries := make([]reverseResponseEntry, 0, len(results))
	for _, result := range results {
		entry := reverseResponseEntry{Object: result.Object.String()}
		if result.AdminRegion != nil {
			entry.AdminRegion = result.AdminRegion.Name
		}
		if result.POI != nil {
			entry.POI = result.POI.Name
		}
		if result.Location != nil {
			entry.Location = result.Location.Name
		}
		if result.Address != nil {
			entry.Address = result.Address.Name
		}
		entries = append(entries, entry)
	}

	return entries, http.StatusOK, nil
}

func handleGroundTiles(db *database.Database, request *http.Request) (any, int, error) {
	bbox, err := parseBbox(request)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	tiles, err := db.GetGroundTiles(bbox, parseMagnification(request))
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	type groundTileResponse struct {
		State  string     `json:"state"`
		MinLat float64    `json:"minLat"`
		MinLon float64    `json:"minLon"`
		MaxLat float64    `json:"maxLat"`
		MaxLon float64    `json:"maxLon"`
		Coast  [][]float64 `json:"coast,omitempty"`
	}

	entries := make([]groundTileResponse, 0, len(tiles))
	for _, tile := range tiles {
		entry := groundTileResponse{
			State:  tile.State.String(),
			MinLat: tile.Bound.Min[1],
			MinLon: tile.Bound.Min[0],
			MaxLat: tile.Bound.Max[1],
			MaxLon: tile.Bound.Max[0],
		}
		for _, coord := range tile.Coast {
			entry.Coast = append(entry.Coast, []float64{coord.Lat, coord.Lon})
		}
		entries = append(entries, entry)
	}

	return entries, http.StatusOK, nil
}
