package model

import (
	"github.com/paulmach/osm"
	"github.com/pkg/errors"

	"scoutdb/fileio"
)

// TypeId identifies a feature category registered in the TypeConfig.
type TypeId = uint32

// TypeIgnore is the id of the implicit "no type" entry.
const TypeIgnore TypeId = 0

// Vehicle selects a routing profile when checking type routability.
type Vehicle uint8

const (
	VehicleFoot Vehicle = iota
	VehicleBicycle
	VehicleCar
)

const (
	shapeNode     = 1 << 0
	shapeWay      = 1 << 1
	shapeArea     = 1 << 2
	shapeRelation = 1 << 3
)

const (
	routeFoot    = 1 << 0
	routeBicycle = 1 << 1
	routeCar     = 1 << 2
)

// TypeInfo describes one feature category: the tag that selects it, the
// shapes it may take and its routability per vehicle.
type TypeInfo struct {
	Id   TypeId
	Name string
	Tag  osm.Tag

	CanBeNode     bool
	CanBeWay      bool
	CanBeArea     bool
	CanBeRelation bool

	CanRouteFoot    bool
	CanRouteBicycle bool
	CanRouteCar     bool

	Indexable bool
}

func (t TypeInfo) CanRoute(vehicle Vehicle) bool {
	switch vehicle {
	case VehicleFoot:
		return t.CanRouteFoot
	case VehicleBicycle:
		return t.CanRouteBicycle
	case VehicleCar:
		return t.CanRouteCar
	default:
		return false
	}
}

// TypeConfig is the append-only registry of feature types, populated once at
// open time from types.dat and read-only afterwards.
type TypeConfig struct {
	types     []TypeInfo // index is the TypeId
	tagToType map[string]map[string]TypeId
}

func NewTypeConfig() *TypeConfig {
	config := &TypeConfig{
		tagToType: map[string]map[string]TypeId{},
	}

	// Id 0 is reserved for "no type".
	config.types = append(config.types, TypeInfo{Id: TypeIgnore, Name: "ignore"})

	return config
}

// RegisterType appends a new type and returns its id. The id sequence is
// dense, starting right after TypeIgnore.
func (c *TypeConfig) RegisterType(info TypeInfo) TypeId {
	info.Id = TypeId(len(c.types))
	c.types = append(c.types, info)

	values, ok := c.tagToType[info.Tag.Key]
	if !ok {
		values = map[string]TypeId{}
		c.tagToType[info.Tag.Key] = values
	}
	values[info.Tag.Value] = info.Id

	return info.Id
}

func (c *TypeConfig) GetTypeInfo(id TypeId) (TypeInfo, error) {
	if int(id) >= len(c.types) {
		return TypeInfo{}, errors.Errorf("unknown type id %d (registry holds %d types)", id, len(c.types))
	}
	return c.types[id], nil
}

// GetTypeIdForTag returns the type selected by the given tag, or TypeIgnore
// when no registered type matches.
func (c *TypeConfig) GetTypeIdForTag(key string, value string) TypeId {
	values, ok := c.tagToType[key]
	if !ok {
		return TypeIgnore
	}
	id, ok := values[value]
	if !ok {
		return TypeIgnore
	}
	return id
}

func (c *TypeConfig) MaxTypeId() TypeId {
	return TypeId(len(c.types) - 1)
}

// Types returns the full registry including the reserved ignore type.
func (c *TypeConfig) Types() []TypeInfo {
	return c.types
}

// ReadTypeConfig loads the registry from a types.dat scanner.
func ReadTypeConfig(scanner *fileio.Scanner) (*TypeConfig, error) {
	config := NewTypeConfig()

	typeCount := scanner.ReadVarUint()
	for i := uint64(0); i < typeCount; i++ {
		var info TypeInfo

		info.Name = scanner.ReadString()
		info.Tag.Key = scanner.ReadString()
		info.Tag.Value = scanner.ReadString()

		shapes := scanner.ReadU8()
		info.CanBeNode = shapes&shapeNode != 0
		info.CanBeWay = shapes&shapeWay != 0
		info.CanBeArea = shapes&shapeArea != 0
		info.CanBeRelation = shapes&shapeRelation != 0

		route := scanner.ReadU8()
		info.CanRouteFoot = route&routeFoot != 0
		info.CanRouteBicycle = route&routeBicycle != 0
		info.CanRouteCar = route&routeCar != 0

		info.Indexable = scanner.ReadBool()

		if scanner.HasError() {
			return nil, errors.Wrapf(scanner.Err(), "error reading type %d of %d", i, typeCount)
		}

		config.RegisterType(info)
	}

	return config, nil
}

// WriteTypeConfig stores the registry in the types.dat format. The reserved
// ignore type is implicit and not written.
func WriteTypeConfig(writer *fileio.Writer, config *TypeConfig) error {
	types := config.Types()[1:]

	if err := writer.WriteVarUint(uint64(len(types))); err != nil {
		return err
	}

	for _, info := range types {
		if err := writer.WriteString(info.Name); err != nil {
			return err
		}
		if err := writer.WriteString(info.Tag.Key); err != nil {
			return err
		}
		if err := writer.WriteString(info.Tag.Value); err != nil {
			return err
		}

		var shapes uint8
		if info.CanBeNode {
			shapes |= shapeNode
		}
		if info.CanBeWay {
			shapes |= shapeWay
		}
		if info.CanBeArea {
			shapes |= shapeArea
		}
		if info.CanBeRelation {
			shapes |= shapeRelation
		}
		if err := writer.WriteU8(shapes); err != nil {
			return err
		}

		var route uint8
		if info.CanRouteFoot {
			route |= routeFoot
		}
		if info.CanRouteBicycle {
			route |= routeBicycle
		}
		if info.CanRouteCar {
			route |= routeCar
		}
		if err := writer.WriteU8(route); err != nil {
			return err
		}

		if err := writer.WriteBool(info.Indexable); err != nil {
			return err
		}
	}

	return nil
}
