package feed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sec(symbol string) Security {
	return Security{Symbol: Symbol{Value: symbol, Type: SecurityTypeEquity}}
}

func keys(secs []Security) []string {
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.Symbol.Key()
	}
	return out
}

func TestSecurityChanges_MergeIsDisjointByDefault(t *testing.T) {
	a := SecurityChanges{Added: []Security{sec("SPY")}}
	b := SecurityChanges{Removed: []Security{sec("QQQ")}}

	merged := a.Merge(b)
	require.ElementsMatch(t, []string{"Equity:SPY"}, keys(merged.Added))
	require.ElementsMatch(t, []string{"Equity:QQQ"}, keys(merged.Removed))
}

func TestSecurityChanges_AddReplacesPriorRemoval(t *testing.T) {
	removed := SecurityChanges{Removed: []Security{sec("SPY")}}
	readded := SecurityChanges{Added: []Security{sec("SPY")}}

	merged := removed.Merge(readded)
	require.Empty(t, merged.Removed, "a subsequent add of a just-removed security replaces the removal")
	require.Equal(t, []string{"Equity:SPY"}, keys(merged.Added))
}

func TestSecurityChanges_DuplicateAddsAreDeduped(t *testing.T) {
	a := SecurityChanges{Added: []Security{sec("SPY")}}
	b := SecurityChanges{Added: []Security{sec("SPY")}}

	merged := a.Merge(b)
	require.Equal(t, []string{"Equity:SPY"}, keys(merged.Added))
}

func TestSecurityChanges_NoChangesIsEmpty(t *testing.T) {
	require.True(t, NoSecurityChanges.IsEmpty())
	require.True(t, NoSecurityChanges.Merge(NoSecurityChanges).IsEmpty())
}
