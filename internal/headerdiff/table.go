package headerdiff

// Entries older than this many batches may be substituted by a literal.
const lruAgeThreshold = 15

type TableEntry struct {
	Name  string
	Value string
	Index int
	Age   int
}

// HeaderTable holds the previously transmitted headers. Entries are only
// appended or overwritten in place, so an index stays valid for the whole
// session. Size counts value bytes only.
type HeaderTable struct {
	entries []*TableEntry
	size    int
}

func newHeaderTable() *HeaderTable {
	return &HeaderTable{}
}

func (t *HeaderTable) Len() int {
	return len(t.entries)
}

func (t *HeaderTable) Size() int {
	return t.size
}

// Entries returns a copy of the table in index order.
func (t *HeaderTable) Entries() []TableEntry {
	out := make([]TableEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

func (t *HeaderTable) entry(index int) (*TableEntry, bool) {
	if index < 0 || index >= len(t.entries) {
		return nil, false
	}
	return t.entries[index], true
}

func (t *HeaderTable) ageAll() {
	for _, e := range t.entries {
		e.Age++
	}
}

func (t *HeaderTable) findExact(name, value string) *TableEntry {
	for _, e := range t.entries {
		if e.Name == name && e.Value == value {
			return e
		}
	}
	return nil
}

func (t *HeaderTable) findByName(name string) []*TableEntry {
	var found []*TableEntry
	for _, e := range t.entries {
		if e.Name == name {
			found = append(found, e)
		}
	}
	return found
}

// findLRU returns the oldest entry whose age exceeds threshold. On equal
// ages the entry with the lowest index wins.
func (t *HeaderTable) findLRU(threshold int) *TableEntry {
	var lru *TableEntry
	for _, e := range t.entries {
		if e.Age > threshold && (lru == nil || e.Age > lru.Age) {
			lru = e
		}
	}
	return lru
}

func (t *HeaderTable) insert(name, value string) int {
	index := len(t.entries)
	t.entries = append(t.entries, &TableEntry{Name: name, Value: value, Index: index})
	t.size += len(value)
	return index
}

func (t *HeaderTable) replace(index int, name, value string) {
	e := t.entries[index]
	t.size += len(value) - len(e.Value)
	e.Name = name
	e.Value = value
	e.Age = 0
}

func (t *HeaderTable) sizeFits(extra, maxTableSize int) bool {
	return t.size+extra < maxTableSize
}

// NameTable maps header names to stable indices. It is seeded from a
// registry and only grows.
type NameTable struct {
	names   []string
	indices map[string]int
}

func newNameTable(registry []string) *NameTable {
	nt := &NameTable{
		names:   make([]string, 0, len(registry)),
		indices: make(map[string]int, len(registry)),
	}
	for _, name := range registry {
		nt.append(name)
	}
	return nt
}

func (nt *NameTable) Len() int {
	return len(nt.names)
}

func (nt *NameTable) lookup(name string) (int, bool) {
	i, ok := nt.indices[name]
	return i, ok
}

func (nt *NameTable) name(index int) (string, bool) {
	if index < 0 || index >= len(nt.names) {
		return "", false
	}
	return nt.names[index], true
}

func (nt *NameTable) append(name string) int {
	index := len(nt.names)
	nt.names = append(nt.names, name)
	if _, dup := nt.indices[name]; !dup {
		nt.indices[name] = index
	}
	return index
}
