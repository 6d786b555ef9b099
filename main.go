package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"

	"scoutdb/builder"
	"scoutdb/database"
	"scoutdb/model"
	"scoutdb/web"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Info    struct {
		Path string `help:"The dataset directory." placeholder:"<dataset-dir>" arg:"" type:"existingdir"`
	} `cmd:"" help:"Prints the bounding box, type registry and cache statistics of a dataset."`
	Locate struct {
		Path      string `help:"The dataset directory." placeholder:"<dataset-dir>" arg:"" type:"existingdir"`
		Pattern   string `help:"The free-text search pattern." placeholder:"<pattern>" arg:""`
		Limit     int    `help:"Maximum number of results." default:"50"`
		Addresses bool   `help:"Also list the addresses of matched locations."`
	} `cmd:"" help:"Searches admin regions, streets, POIs and addresses matching the pattern."`
	Reverse struct {
		Path string   `help:"The dataset directory." placeholder:"<dataset-dir>" arg:"" type:"existingdir"`
		Refs []string `help:"Object references like node:42, way:7 or area:123." placeholder:"<ref>" arg:""`
	} `cmd:"" help:"Returns the admin region / location / address hierarchy enclosing each object."`
	Server struct {
		Path   string `help:"The dataset directory." placeholder:"<dataset-dir>" arg:"" type:"existingdir"`
		Config string `help:"Server config file." optional:""`
	} `cmd:"" help:"Serves the query API over HTTP."`
	Sample struct {
		Path string `help:"The output directory." placeholder:"<output-dir>" arg:""`
	} `cmd:"" help:"Writes a small sample dataset for experimentation."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("scoutdb"),
		kong.Description("An offline, read-only map database over OSM-derived datasets."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "info <path>":
		db := openDatabase(cli.Info.Path)
		defer db.Close()

		bound, err := db.GetBoundingBox()
		sigolo.FatalCheck(err)

		sigolo.Infof("Dataset %s", db.GetPath())
		sigolo.Infof("Bounding box: lat %.3f..%.3f, lon %.3f..%.3f", bound.Min[1], bound.Max[1], bound.Min[0], bound.Max[0])
		sigolo.Infof("Registered types: %d", db.GetTypeConfig().MaxTypeId())
		db.DumpStatistics()
	case "locate <path> <pattern>":
		db := openDatabase(cli.Locate.Path)
		defer db.Close()

		search := database.NewLocationSearch()
		search.Limit = cli.Locate.Limit
		search.InitializeSearchEntries(cli.Locate.Pattern)

		result, err := db.SearchForLocations(search)
		sigolo.FatalCheck(err)

		for _, entry := range result.Results {
			fmt.Println(formatSearchResult(entry))

			if cli.Locate.Addresses && entry.Location != nil && entry.Address == nil {
				addresses := &database.AddressListVisitor{Limit: cli.Locate.Limit}
				err := db.VisitLocationAddresses(entry.AdminRegion, entry.Location, addresses)
				sigolo.FatalCheck(err)
				for _, address := range addresses.Results {
					fmt.Printf("    %s (%s)\n", address.Name, address.Object)
				}
			}
		}
		if result.LimitReached {
			sigolo.Infof("Result limit of %d reached", search.Limit)
		}
	case "reverse <path> <refs>":
		db := openDatabase(cli.Reverse.Path)
		defer db.Close()

		objects := make([]model.ObjectFileRef, 0, len(cli.Reverse.Refs))
		for _, raw := range cli.Reverse.Refs {
			object, err := parseObjectRef(raw)
			sigolo.FatalCheck(err)
			objects = append(objects, object)
		}

		results, err := db.ReverseLookupObjects(objects)
		sigolo.FatalCheck(err)

		for _, result := range results {
			fmt.Println(formatReverseResult(result))
		}
	case "server <path>":
		config, err := web.LoadConfig(cli.Server.Config)
		sigolo.FatalCheck(err)
		sigolo.FatalCheck(web.StartServer(config, cli.Server.Path))
	case "sample <path>":
		sample := builder.NewSample()
		_, err := sample.Dataset.Build(cli.Sample.Path)
		sigolo.FatalCheck(err)
		sigolo.Infof("Sample dataset written to %s", cli.Sample.Path)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func openDatabase(path string) *database.Database {
	db := database.NewDatabase(database.NewDatabaseParameter())
	sigolo.FatalCheck(db.Open(path))
	return db
}

func parseObjectRef(raw string) (model.ObjectFileRef, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) == 2 {
		var refType model.RefType
		switch parts[0] {
		case "node":
			refType = model.RefNode
		case "way":
			refType = model.RefWay
		case "area":
			refType = model.RefArea
		}
		if refType != model.RefNone {
			var offset model.FileOffset
			if _, err := fmt.Sscanf(parts[1], "%d", &offset); err == nil {
				return model.NewObjectFileRef(refType, offset), nil
			}
		}
	}
	return model.ObjectFileRef{}, fmt.Errorf("invalid object reference '%s', expected <kind>:<offset>", raw)
}

func formatSearchResult(entry database.LocationSearchResultEntry) string {
	var parts []string
	if entry.AdminRegion != nil {
		parts = append(parts, fmt.Sprintf("region '%s' (%s)", entry.AdminRegion.Name, entry.AdminRegionMatchQuality))
	}
	if entry.POI != nil {
		parts = append(parts, fmt.Sprintf("poi '%s' (%s)", entry.POI.Name, entry.POIMatchQuality))
	}
	if entry.Location != nil {
		parts = append(parts, fmt.Sprintf("location '%s' (%s)", entry.Location.Name, entry.LocationMatchQuality))
	}
	if entry.Address != nil {
		parts = append(parts, fmt.Sprintf("address '%s' (%s)", entry.Address.Name, entry.AddressMatchQuality))
	}
	return strings.Join(parts, ", ")
}

func formatReverseResult(result database.ReverseLookupResult) string {
	parts := []string{result.Object.String()}
	if result.AdminRegion != nil {
		parts = append(parts, "region '"+result.AdminRegion.Name+"'")
	}
	if result.POI != nil {
		parts = append(parts, "poi '"+result.POI.Name+"'")
	}
	if result.Location != nil {
		parts = append(parts, "location '"+result.Location.Name+"'")
	}
	if result.Address != nil {
		parts = append(parts, "address '"+result.Address.Name+"'")
	}
	return strings.Join(parts, " -> ")
}
