package dataview

import (
	"fmt"
	"strings"
)

// Compiled is a ready-to-execute SQL statement with its bound parameters.
type Compiled struct {
	Kind   string
	Fields []string
	SQL    string
	Args   []any
}

// Decode converts a serialized condition into the typed tree, validating
// that every node carries its required parts.
func Decode(sc *SerializedCondition) (Cond, error) {
	switch sc.Type {
	case "comparison":
		if sc.Field == "" {
			return nil, fmt.Errorf("missing field in comparison")
		}
		if sc.Operator == "" {
			return nil, fmt.Errorf("missing operator in comparison")
		}
		if sc.Value == nil {
			return nil, fmt.Errorf("missing value in comparison")
		}
		return Comparison{Field: sc.Field, Operator: sc.Operator, Value: sc.Value}, nil

	case "and", "or":
		if len(sc.Conditions) == 0 {
			return nil, fmt.Errorf("missing conditions in %s", strings.ToUpper(sc.Type))
		}
		children := make([]Cond, 0, len(sc.Conditions))
		for i := range sc.Conditions {
			child, err := Decode(&sc.Conditions[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if sc.Type == "and" {
			return And{Conds: children}, nil
		}
		return Or{Conds: children}, nil

	case "not":
		if len(sc.Conditions) == 0 {
			return nil, fmt.Errorf("missing conditions in NOT")
		}
		child, err := Decode(&sc.Conditions[0])
		if err != nil {
			return nil, err
		}
		return Not{Cond: child}, nil

	default:
		return nil, fmt.Errorf("unknown condition type: %q", sc.Type)
	}
}

// Compile translates a serialized query into parameterized SQL over the
// notes schema. Every literal (comparison values, folder prefixes, link
// targets, front-matter JSON paths, the limit) is bound, never spliced
// into the statement text.
func Compile(q *SerializedQuery) (*Compiled, error) {
	kind := strings.ToUpper(strings.TrimSpace(q.Kind))
	if kind == "" {
		kind = KindList
	}

	var cond Cond
	if q.Where != nil {
		decoded, err := Decode(q.Where)
		if err != nil {
			return nil, err
		}
		cond = decoded
	}

	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT n.path, n.title, n.created_at, n.modified_at, n.frontmatter")
	sb.WriteString(" FROM notes n")

	needsTags := referencesTags(cond)
	for _, src := range q.FromSources {
		if src.Type == SourceTag {
			needsTags = true
		}
	}
	if needsTags {
		sb.WriteString(" LEFT JOIN tags t ON t.note_id = n.id")
	}

	for _, src := range q.FromSources {
		if src.Type == SourceLink {
			// Notes that link toward this target.
			target := strings.Trim(src.Value, "[]")
			sb.WriteString(" INNER JOIN backlinks b ON b.source_id = n.id AND b.target_path LIKE ?")
			args = append(args, "%"+target+"%")
		}
	}

	whereParts := []string{}

	// Archived notes stay hidden unless the condition tree addresses the
	// flag itself.
	if !referencesArchived(cond) {
		whereParts = append(whereParts, "n.archived = 0")
	}

	for _, src := range q.FromSources {
		switch src.Type {
		case SourceFolder:
			folder := strings.Trim(strings.Trim(src.Value, `"`), "/")
			whereParts = append(whereParts, "n.path LIKE ?")
			args = append(args, folder+"%")
		case SourceTag:
			whereParts = append(whereParts, "t.tag = ?")
			args = append(args, strings.TrimPrefix(src.Value, "#"))
		}
	}

	if cond != nil {
		condSQL, condArgs, err := compileCond(cond)
		if err != nil {
			return nil, err
		}
		whereParts = append(whereParts, condSQL)
		args = append(args, condArgs...)
	}

	if len(whereParts) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(whereParts, " AND "))
	}

	// The tag join fans rows out per matching tag; collapse back to one
	// row per note.
	if needsTags {
		sb.WriteString(" GROUP BY n.id")
	}

	if len(q.Sort) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, s := range q.Sort {
			if i > 0 {
				sb.WriteString(", ")
			}
			expr, exprArgs := fieldExpr(s.Field)
			sb.WriteString(expr)
			args = append(args, exprArgs...)
			if strings.EqualFold(s.Direction, "DESC") {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	} else {
		sb.WriteString(" ORDER BY n.modified_at DESC")
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	return &Compiled{Kind: kind, Fields: q.Fields, SQL: sb.String(), Args: args}, nil
}

// compileCond emits the predicate for one condition node.
func compileCond(c Cond) (string, []any, error) {
	switch n := c.(type) {
	case Comparison:
		return compileComparison(n)

	case And:
		return compileList(n.Conds, " AND ")

	case Or:
		return compileList(n.Conds, " OR ")

	case Not:
		sql, args, err := compileCond(n.Cond)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", args, nil

	default:
		return "", nil, fmt.Errorf("unknown condition node %T", c)
	}
}

func compileList(conds []Cond, sep string) (string, []any, error) {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		sql, a, err := compileCond(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, sep) + ")", args, nil
}

func compileComparison(c Comparison) (string, []any, error) {
	expr, args := fieldExpr(c.Field)
	value := bindValue(c.Value)

	switch strings.ToUpper(c.Operator) {
	case "=", "!=", ">", "<", ">=", "<=":
		return fmt.Sprintf("%s %s ?", expr, strings.ToUpper(c.Operator)), append(args, value), nil
	case "CONTAINS":
		return expr + " LIKE ?", append(args, "%"+stringValue(value)+"%"), nil
	case "STARTSWITH":
		return expr + " LIKE ?", append(args, stringValue(value)+"%"), nil
	case "ENDSWITH":
		return expr + " LIKE ?", append(args, "%"+stringValue(value)), nil
	default:
		return "", nil, fmt.Errorf("unknown operator: %q", c.Operator)
	}
}

// fieldExpr maps a virtual field name to its column or expression. Any
// unrecognized name is treated as a front-matter key; the JSON path is
// returned as a bound argument so the key cannot alter the statement.
func fieldExpr(field string) (string, []any) {
	switch field {
	case "file.name", "title":
		return "n.title", nil
	case "file.path", "path":
		return "n.path", nil
	case "file.ctime", "created":
		return "n.created_at", nil
	case "file.mtime", "modified":
		return "n.modified_at", nil
	case "file.folder":
		return "rtrim(rtrim(n.path, replace(n.path, '/', '')), '/')", nil
	case "file.tags", "tags":
		return "t.tag", nil
	case "file.archived", "archived":
		return "n.archived", nil
	case "file.starred", "starred":
		return "n.starred", nil
	default:
		return "json_extract(n.frontmatter, ?)", []any{"$." + field}
	}
}

// bindValue normalizes a JSON-decoded literal for parameter binding.
func bindValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func referencesTags(c Cond) bool {
	return referencesField(c, "file.tags", "tags")
}

func referencesArchived(c Cond) bool {
	return referencesField(c, "file.archived", "archived")
}

func referencesField(c Cond, names ...string) bool {
	switch n := c.(type) {
	case Comparison:
		for _, name := range names {
			if n.Field == name {
				return true
			}
		}
	case And:
		for _, child := range n.Conds {
			if referencesField(child, names...) {
				return true
			}
		}
	case Or:
		for _, child := range n.Conds {
			if referencesField(child, names...) {
				return true
			}
		}
	case Not:
		return referencesField(n.Cond, names...)
	}
	return false
}
