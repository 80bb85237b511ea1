package dataview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Validation(t *testing.T) {
	cases := []struct {
		name string
		cond SerializedCondition
		want string
	}{
		{"missing field", SerializedCondition{Type: "comparison", Operator: "=", Value: "x"}, "missing field in comparison"},
		{"missing operator", SerializedCondition{Type: "comparison", Field: "f", Value: "x"}, "missing operator in comparison"},
		{"missing value", SerializedCondition{Type: "comparison", Field: "f", Operator: "="}, "missing value in comparison"},
		{"empty and", SerializedCondition{Type: "and"}, "missing conditions in AND"},
		{"empty or", SerializedCondition{Type: "or"}, "missing conditions in OR"},
		{"empty not", SerializedCondition{Type: "not"}, "missing conditions in NOT"},
		{"unknown type", SerializedCondition{Type: "xor"}, `unknown condition type: "xor"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(&tc.cond)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestDecode_NestedTree(t *testing.T) {
	sc := &SerializedCondition{
		Type: "and",
		Conditions: []SerializedCondition{
			{Type: "comparison", Field: "status", Operator: "=", Value: "open"},
			{Type: "not", Conditions: []SerializedCondition{
				{Type: "comparison", Field: "file.path", Operator: "STARTSWITH", Value: "archive/"},
			}},
		},
	}
	cond, err := Decode(sc)
	require.NoError(t, err)

	and, ok := cond.(And)
	require.True(t, ok)
	require.Len(t, and.Conds, 2)
	assert.IsType(t, Comparison{}, and.Conds[0])
	assert.IsType(t, Not{}, and.Conds[1])
}

func TestCompile_Defaults(t *testing.T) {
	c, err := Compile(&SerializedQuery{})
	require.NoError(t, err)
	assert.Equal(t, KindList, c.Kind)
	assert.Contains(t, c.SQL, "n.archived = 0")
	assert.Contains(t, c.SQL, "ORDER BY n.modified_at DESC")
	assert.NotContains(t, c.SQL, "LIMIT")
	assert.NotContains(t, c.SQL, "JOIN tags")
}

func TestCompile_ArchivedConditionDisablesDefault(t *testing.T) {
	c, err := Compile(&SerializedQuery{
		Where: &SerializedCondition{Type: "comparison", Field: "archived", Operator: "=", Value: true},
	})
	require.NoError(t, err)
	assert.NotContains(t, c.SQL, "n.archived = 0")
	assert.Contains(t, c.SQL, "n.archived = ?")
	// Booleans bind as integers.
	assert.Contains(t, c.Args, 1)
}

func TestCompile_TagSourceJoinsAndGroups(t *testing.T) {
	c, err := Compile(&SerializedQuery{
		FromSources: []FromSource{{Type: SourceTag, Value: "#project"}},
	})
	require.NoError(t, err)
	assert.Contains(t, c.SQL, "LEFT JOIN tags t ON t.note_id = n.id")
	assert.Contains(t, c.SQL, "t.tag = ?")
	assert.Contains(t, c.SQL, "GROUP BY n.id")
	assert.Contains(t, c.Args, "project")
}

func TestCompile_FolderAndLinkSources(t *testing.T) {
	c, err := Compile(&SerializedQuery{
		FromSources: []FromSource{
			{Type: SourceFolder, Value: `"projects/"`},
			{Type: SourceLink, Value: "[[hub]]"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, c.SQL, "n.path LIKE ?")
	assert.Contains(t, c.SQL, "INNER JOIN backlinks b")
	assert.Contains(t, c.Args, "projects%")
	assert.Contains(t, c.Args, "%hub%")
}

func TestCompile_FrontmatterFieldIsBound(t *testing.T) {
	c, err := Compile(&SerializedQuery{
		Where: &SerializedCondition{
			Type:     "comparison",
			Field:    `status"; DROP TABLE notes; --`,
			Operator: "=",
			Value:    "open",
		},
	})
	require.NoError(t, err)
	// The hostile field name must ride as a parameter, never as SQL text.
	assert.NotContains(t, c.SQL, "DROP TABLE")
	assert.Contains(t, c.SQL, "json_extract(n.frontmatter, ?)")
	assert.Contains(t, c.Args, `$.status"; DROP TABLE notes; --`)
}

func TestCompile_Operators(t *testing.T) {
	for op, frag := range map[string]string{
		"=":          "n.title = ?",
		"!=":         "n.title != ?",
		">":          "n.title > ?",
		"<=":         "n.title <= ?",
		"CONTAINS":   "n.title LIKE ?",
		"STARTSWITH": "n.title LIKE ?",
		"ENDSWITH":   "n.title LIKE ?",
	} {
		c, err := Compile(&SerializedQuery{
			Where: &SerializedCondition{Type: "comparison", Field: "title", Operator: op, Value: "v"},
		})
		require.NoError(t, err, op)
		assert.Contains(t, c.SQL, frag, op)
	}

	_, err := Compile(&SerializedQuery{
		Where: &SerializedCondition{Type: "comparison", Field: "title", Operator: "LIKE", Value: "v"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")
}

func TestCompile_ContainsWildcards(t *testing.T) {
	c, err := Compile(&SerializedQuery{
		Where: &SerializedCondition{Type: "comparison", Field: "title", Operator: "CONTAINS", Value: "mid"},
	})
	require.NoError(t, err)
	assert.Contains(t, c.Args, "%mid%")
}

func TestCompile_SortAndLimit(t *testing.T) {
	c, err := Compile(&SerializedQuery{
		Sort: []SortClause{
			{Field: "priority", Direction: "desc"},
			{Field: "file.name", Direction: "ASC"},
		},
		Limit: 25,
	})
	require.NoError(t, err)
	assert.Contains(t, c.SQL, "ORDER BY json_extract(n.frontmatter, ?) DESC, n.title ASC")
	assert.Contains(t, c.SQL, "LIMIT ?")
	assert.Equal(t, 25, c.Args[len(c.Args)-1])
	assert.Contains(t, c.Args, "$.priority")
}
