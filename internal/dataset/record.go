// Package dataset holds the tabular data model shared by the sort engine,
// the wire codec and the dataset sources: scalar Values, ordered Records and
// Datasets.
package dataset

// Field is a named cell of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is one row of a Dataset. Field order is preserved as constructed.
// Records are immutable; accessors return copies.
type Record struct {
	fields []Field
}

// NewRecord builds a Record from fields. A repeated name replaces the earlier
// value in place, keeping its original position.
func NewRecord(fields ...Field) Record {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		replaced := false
		for i := range out {
			if out[i].Name == f.Name {
				out[i].Value = f.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, f)
		}
	}
	return Record{fields: out}
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Field returns the i-th field.
func (r Record) Field(i int) Field { return r.fields[i] }

// Fields returns a copy of the record's fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

// Dataset is an ordered sequence of Records sharing one schema.
type Dataset []Record

// Clone returns a new slice holding the same records.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// Column returns the values of name for every record that has it.
func (d Dataset) Column(name string) []Value {
	out := make([]Value, 0, len(d))
	for _, r := range d {
		if v, ok := r.Get(name); ok {
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether a and b hold equal records in the same order.
func Equal(a, b Dataset) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
