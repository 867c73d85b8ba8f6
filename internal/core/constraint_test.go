package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"facetkit/internal/types"
)

func TestVersionExprMatches(t *testing.T) {
	comparator, err := NewVersionComparator(types.ComparatorDefault)
	require.NoError(t, err)

	tests := []struct {
		expr    string
		version string
		want    bool
	}{
		{expr: "*", version: "1.0", want: true},
		{expr: "", version: "9", want: true},
		{expr: "2.5", version: "2.5", want: true},
		{expr: "2.5", version: "2.50", want: false},
		{expr: "2.4,2.5", version: "2.4", want: true},
		{expr: "2.4, 2.5", version: "3.0", want: false},
		{expr: "[2.0-3.0)", version: "2.0", want: true},
		{expr: "[2.0-3.0)", version: "3.0", want: false},
		{expr: "(2.0-3.0]", version: "2.0", want: false},
		{expr: "(2.0-3.0]", version: "3.0", want: true},
		{expr: "[2.0 - 3.0]", version: "2.5", want: true},
		{expr: "[11-", version: "17", want: true},
		{expr: "[11-", version: "1.8", want: false},
		{expr: "1.0,[3.0-", version: "4.1", want: true},
	}
	for _, tt := range tests {
		expr, err := ParseVersionExpr(tt.expr)
		require.NoError(t, err, tt.expr)
		got, err := expr.Matches(comparator, tt.version)
		require.NoError(t, err, tt.expr)
		require.Equal(t, tt.want, got, "%q matches %q", tt.expr, tt.version)
	}
}

func TestVersionExprExactMatchOnUnparsable(t *testing.T) {
	comparator, err := NewVersionComparator(types.ComparatorDefault)
	require.NoError(t, err)

	expr, err := ParseVersionExpr("2..x")
	require.NoError(t, err)
	got, err := expr.Matches(comparator, "2..x")
	require.NoError(t, err)
	require.True(t, got)

	expr, err = ParseVersionExpr("[2.0-")
	require.NoError(t, err)
	got, err = expr.Matches(comparator, "2..x")
	require.Error(t, err)
	require.False(t, got)
}

func TestVersionExprHyphenatedBounds(t *testing.T) {
	comparator, err := NewVersionComparator(types.ComparatorSemver)
	require.NoError(t, err)

	expr, err := ParseVersionExpr("[1.0.0-beta - 2.0.0)")
	require.NoError(t, err)
	require.NoError(t, expr.ValidateBounds(comparator))
	for version, want := range map[string]bool{
		"1.0.0-alpha": false,
		"1.0.0-beta":  true,
		"1.5.0":       true,
		"2.0.0":       false,
	} {
		got, err := expr.Matches(comparator, version)
		require.NoError(t, err, version)
		require.Equal(t, want, got, version)
	}

	// without spaces the first hyphen separates the bounds
	expr, err = ParseVersionExpr("[1.0.0-beta-2.0.0)")
	require.NoError(t, err)
	err = expr.ValidateBounds(comparator)
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestParseVersionExprInvalid(t *testing.T) {
	for _, raw := range []string{"[2.0", "[-3.0]", "[2.0-)", "1.0,,2.0"} {
		_, err := ParseVersionExpr(raw)
		require.Error(t, err, raw)
	}
}

func TestParseCapabilityRef(t *testing.T) {
	id, expr, err := ParseCapabilityRef("web@2.5")
	require.NoError(t, err)
	require.Equal(t, "web", id)
	require.Equal(t, "2.5", expr.String())

	id, expr, err = ParseCapabilityRef("java")
	require.NoError(t, err)
	require.Equal(t, "java", id)
	require.True(t, expr.Any())

	for _, raw := range []string{"", "@2.5", "web@"} {
		_, _, err := ParseCapabilityRef(raw)
		require.Error(t, err, raw)
	}
}
