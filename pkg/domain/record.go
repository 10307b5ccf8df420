package domain

// Record is the constraint satisfied by every cached resource record. The
// self-referential parameter lets generic code return properly typed copies
// without reflection.
type Record[R any] interface {
	RecordID() string
	WithRecordID(id string) R
	Clone() R
	Entity() EntityType
	Scope() string
}

// Collection holds the ordered records and total count of one cached
// collection entry. Total may exceed len(Records) when the entry is a page
// of a larger server-side result.
type Collection[R Record[R]] struct {
	Records []R `json:"records"`
	Total   int `json:"total"`
}

// Clone returns a deep copy of the collection.
func (c Collection[R]) Clone() Collection[R] {
	cp := Collection[R]{Total: c.Total}
	if c.Records != nil {
		cp.Records = make([]R, len(c.Records))
		for i, r := range c.Records {
			cp.Records[i] = r.Clone()
		}
	}
	return cp
}

// Find returns the record with the given id and its position, or -1.
func (c Collection[R]) Find(id string) (R, int) {
	for i, r := range c.Records {
		if r.RecordID() == id {
			return r, i
		}
	}
	var zero R
	return zero, -1
}

// Patch is the wire shape of a partial update: field name to new value.
type Patch map[string]any
