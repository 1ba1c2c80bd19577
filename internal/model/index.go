package model

// IndexType is the physical index method.
type IndexType string

const (
	IndexBTree IndexType = "btree"
	IndexHash  IndexType = "hash"
	IndexGIN   IndexType = "gin"
	IndexGiST  IndexType = "gist"
)

func (t IndexType) Valid() bool {
	switch t {
	case IndexBTree, IndexHash, IndexGIN, IndexGiST:
		return true
	}
	return false
}

// IndexDefinition describes one recommended physical index.
type IndexDefinition struct {
	TableName   string    `json:"table_name"`
	IndexName   string    `json:"index_name"`
	Columns     []string  `json:"columns"`
	Type        IndexType `json:"type"`
	Unique      bool      `json:"unique"`
	Partial     string    `json:"partial,omitempty"` // WHERE predicate
	Description string    `json:"description"`
}
