// Package dataview compiles structured queries over the note index into
// parameterized SQL. The serialized wire shape mirrors what the application
// shell sends; compilation converts it into a typed condition tree first so
// every branch is matched exhaustively, then emits SQL where every literal
// is a bound parameter.
package dataview

// Result kinds.
const (
	KindTable = "TABLE"
	KindList  = "LIST"
	KindTask  = "TASK"
)

// From-source types.
const (
	SourceFolder = "folder"
	SourceTag    = "tag"
	SourceLink   = "link"
)

// FromSource narrows the base note set before conditions apply.
type FromSource struct {
	Type  string `json:"source_type"` // folder, tag, link
	Value string `json:"value"`
}

// SortClause orders results by a virtual or front-matter field.
type SortClause struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // ASC or DESC
}

// SerializedCondition is the loosely-typed condition node as received from
// the caller. Decode turns it into the Cond tree before compilation.
type SerializedCondition struct {
	Type       string                `json:"condition_type"` // comparison, and, or, not
	Field      string                `json:"field,omitempty"`
	Operator   string                `json:"operator,omitempty"`
	Value      any                   `json:"value,omitempty"`
	Conditions []SerializedCondition `json:"conditions,omitempty"`
}

// SerializedQuery is the full query object from the caller.
type SerializedQuery struct {
	Kind        string               `json:"query_type"` // TABLE, LIST, TASK
	Fields      []string             `json:"fields"`
	FromSources []FromSource         `json:"from_sources"`
	Where       *SerializedCondition `json:"where_clause,omitempty"`
	Sort        []SortClause         `json:"sort_clauses"`
	GroupBy     string               `json:"group_by,omitempty"`
	Limit       int                  `json:"limit,omitempty"` // 0 means unbounded
}

// Cond is a node in the typed condition tree.
type Cond interface {
	isCond()
}

// Comparison is a leaf: field OP value.
type Comparison struct {
	Field    string
	Operator string
	Value    any
}

// And requires every child condition to hold.
type And struct {
	Conds []Cond
}

// Or requires at least one child condition to hold.
type Or struct {
	Conds []Cond
}

// Not inverts a single child condition.
type Not struct {
	Cond Cond
}

func (Comparison) isCond() {}
func (And) isCond()        {}
func (Or) isCond()         {}
func (Not) isCond()        {}

// Row is one decoded result row. Values always carries the standard
// file.* fields; projected front-matter fields are added when present.
type Row struct {
	Path   string         `json:"path"`
	Title  string         `json:"title"`
	Values map[string]any `json:"values"`
}

// Result is the query execution envelope. A non-empty Error means the
// query failed before producing rows; callers must treat it as no data.
type Result struct {
	Kind            string   `json:"type"`
	Columns         []string `json:"columns,omitempty"`
	Rows            []Row    `json:"rows"`
	Error           string   `json:"error,omitempty"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}

// ErrorResult builds a well-formed result carrying only an error message.
func ErrorResult(kind, message string) *Result {
	if kind == "" {
		kind = KindList
	}
	return &Result{Kind: kind, Rows: []Row{}, Error: message}
}
