package rrule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func mustRule(t *testing.T, raw string, opts ...Option) *Rule {
	t.Helper()
	r, err := New(raw, opts...)
	require.NoError(t, err)
	return r
}

// requireTimes compares instants, ignoring the location they are expressed in.
func requireTimes(t *testing.T, expected, actual []time.Time) {
	t.Helper()
	require.Len(t, actual, len(expected), "got %v", actual)
	for i := range expected {
		require.True(t, expected[i].Equal(actual[i]), "index %d: expected %s, got %s", i, expected[i], actual[i])
	}
}

// testContext builds a rebuilt context for table and filter tests.
func testContext(opts RuleOptions, year int, month time.Month) *Context {
	ctx := NewContext(&opts, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), UTC)
	ctx.Rebuild(year, month)
	return ctx
}

func someInts(values ...int) mo.Option[[]int] {
	return mo.Some(values)
}
