package model

import "github.com/RoaringBitmap/roaring"

// TypeSet is a compact set of type ids used to filter index queries.
type TypeSet struct {
	bitmap *roaring.Bitmap
}

func NewTypeSet(ids ...TypeId) TypeSet {
	bitmap := roaring.New()
	for _, id := range ids {
		bitmap.Add(id)
	}
	return TypeSet{bitmap: bitmap}
}

// NewTypeSetOf collects all type ids from the config for which the keep
// function returns true.
func NewTypeSetOf(config *TypeConfig, keep func(TypeInfo) bool) TypeSet {
	set := NewTypeSet()
	for _, info := range config.Types() {
		if info.Id == TypeIgnore {
			continue
		}
		if keep(info) {
			set.SetType(info.Id)
		}
	}
	return set
}

func (s TypeSet) SetType(id TypeId) {
	s.bitmap.Add(id)
}

func (s TypeSet) RemoveType(id TypeId) {
	s.bitmap.Remove(id)
}

func (s TypeSet) HasType(id TypeId) bool {
	return s.bitmap.Contains(id)
}

// HasTypes reports whether the set contains at least one type.
func (s TypeSet) HasTypes() bool {
	return s.bitmap != nil && !s.bitmap.IsEmpty()
}

func (s TypeSet) Count() int {
	if s.bitmap == nil {
		return 0
	}
	return int(s.bitmap.GetCardinality())
}

// ForEach calls the given function for every type id in ascending order until
// it returns false.
func (s TypeSet) ForEach(f func(id TypeId) bool) {
	if s.bitmap == nil {
		return
	}
	iterator := s.bitmap.Iterator()
	for iterator.HasNext() {
		if !f(iterator.Next()) {
			return
		}
	}
}

func (s TypeSet) Clone() TypeSet {
	if s.bitmap == nil {
		return NewTypeSet()
	}
	return TypeSet{bitmap: s.bitmap.Clone()}
}
