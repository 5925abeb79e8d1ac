package headerdiff

import "strings"

type Kind uint8

const (
	Literal Kind = iota
	Indexed
	Delta
)

func (k Kind) String() string {
	switch k {
	case Indexed:
		return "Indexed"
	case Delta:
		return "Delta"
	}
	return "Literal"
}

type Indexing uint8

const (
	NoIndexing Indexing = iota
	IncrementalIndexing
	SubstitutionIndexing
)

func (i Indexing) String() string {
	switch i {
	case IncrementalIndexing:
		return "Incremental"
	case SubstitutionIndexing:
		return "Substitution"
	}
	return "None"
}

// NoReference marks a representation that does not point at a table entry.
const NoReference = -1

// Representation records how the encoder serialized one header.
type Representation struct {
	Kind               Kind
	Indexing           Indexing
	Reference          int
	CommonPrefixLength int
	// Encoded holds the bytes emitted for this header.
	Encoded []byte
}

const (
	// Tables below this size are "small": requests need novelty before a
	// delta is added, and literals may substitute old entries.
	smallTableSize = 10000
	// Added bytes a request delta needs before it earns a new entry.
	noveltyThreshold = 15
)

// Characters after which a delta prefix may end.
const deltaLimits = "/&?=,; "

type selector struct {
	table        *HeaderTable
	maxTableSize int
	isRequest    bool
}

func (s *selector) choose(name, value string) Representation {
	rep := Representation{Kind: Literal, Indexing: NoIndexing, Reference: NoReference}

	if e := s.table.findExact(name, value); e != nil {
		rep.Kind = Indexed
		rep.Reference = e.Index
		return rep
	}

	var candidate *TableEntry
	prefixLength, addedLength := 0, 0
	for _, e := range s.table.findByName(name) {
		k := commonPrefixLength(value, e.Value)
		if candidate == nil || k > prefixLength {
			candidate = e
			prefixLength = k
			addedLength = len(value) - len(e.Value)
		}
	}

	lru := s.table.findLRU(lruAgeThreshold)
	smallRequest := s.isRequest && s.maxTableSize < smallTableSize

	if prefixLength > 1 {
		rep.Kind = Delta
		rep.Reference = candidate.Index
		rep.CommonPrefixLength = prefixLength

		isNovel := !smallRequest || addedLength > noveltyThreshold
		if isNovel && s.table.sizeFits(len(value), s.maxTableSize) {
			rep.Indexing = IncrementalIndexing
		} else if s.table.sizeFits(addedLength, s.maxTableSize) {
			rep.Indexing = SubstitutionIndexing
		}
		return rep
	}

	if smallRequest && lru != nil && s.maxTableSize-s.table.Size() > len(value)-len(lru.Value) {
		rep.Indexing = SubstitutionIndexing
		rep.Reference = lru.Index
	} else if s.table.sizeFits(len(value), s.maxTableSize) {
		rep.Indexing = IncrementalIndexing
	}
	return rep
}

// commonPrefixLength returns the length of the longest common prefix of
// value and indexed that ends right after a delta limit character.
func commonPrefixLength(value, indexed string) int {
	k := 0
	for k < len(value) && k < len(indexed) && value[k] == indexed[k] {
		k++
	}
	for ; k > 0; k-- {
		if strings.IndexByte(deltaLimits, indexed[k-1]) >= 0 {
			return k
		}
	}
	return 0
}
