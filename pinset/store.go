package pinset

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/region"
)

// Store keeps pin sets by id, safe for concurrent use.
type Store struct {
	m *xsync.MapOf[uuid.UUID, *PinSet]
}

func NewStore() *Store {
	return &Store{m: xsync.NewMapOf[uuid.UUID, *PinSet]()}
}

func (st *Store) Create(snap region.SnapConfig, points []geomodel.GeoPoint) (uuid.UUID, *PinSet) {
	id := uuid.New()
	set := New(snap, points...)
	st.m.Store(id, set)
	return id, set
}

func (st *Store) Get(id uuid.UUID) (*PinSet, bool) {
	return st.m.Load(id)
}

func (st *Store) Delete(id uuid.UUID) bool {
	_, ok := st.m.LoadAndDelete(id)
	return ok
}

func (st *Store) Len() int {
	return st.m.Size()
}
