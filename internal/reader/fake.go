package reader

import "fmt"

// Fake is an in-memory Reader used by tests and by the CLI's `watch`
// demo importer, standing in for the real compiler artifact decoder
// (§1, §6 — out of scope). Callers populate it with PutUnit/PutRecord
// and then drive an importer against it exactly as they would against
// a real artifact store.
type Fake struct {
	units   map[string]*DecodedUnit
	records map[string][]DecodedSymbol
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		units:   make(map[string]*DecodedUnit),
		records: make(map[string][]DecodedSymbol),
	}
}

// PutUnit registers (or replaces) the decoded form of a unit artifact.
func (f *Fake) PutUnit(u *DecodedUnit) {
	f.units[u.Name] = u
}

// PutRecord registers (or replaces) the decoded symbols for a record.
func (f *Fake) PutRecord(recordName string, symbols []DecodedSymbol) {
	f.records[recordName] = symbols
}

// RemoveUnit simulates the artifact vanishing from the store.
func (f *Fake) RemoveUnit(name string) {
	delete(f.units, name)
}

// ReadUnit implements Reader.
func (f *Fake) ReadUnit(unitName string) (*DecodedUnit, error) {
	u, ok := f.units[unitName]
	if !ok {
		return nil, fmt.Errorf("reader: no such unit: %s", unitName)
	}
	return u, nil
}

// ReadRecordSymbols implements Reader.
func (f *Fake) ReadRecordSymbols(recordName string) ([]DecodedSymbol, error) {
	syms, ok := f.records[recordName]
	if !ok {
		return nil, fmt.Errorf("reader: no such record: %s", recordName)
	}
	return syms, nil
}
