package enum

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"BUY": SideBuy, "buy": SideBuy, " Sell ": SideSell} {
		got, err := ParseSide(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	s, err := ParseSide("HOLD")
	require.Error(t, err)
	assert.False(t, s.IsAvailable())
}

func TestSideText(t *testing.T) {
	b, err := sonic.Marshal(struct {
		Side Side `json:"side"`
	}{SideSell})
	require.NoError(t, err)
	assert.JSONEq(t, `{"side":"SELL"}`, string(b))

	var out struct {
		Side Side `json:"side"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(`{"side":"buy"}`), &out))
	assert.Equal(t, SideBuy, out.Side)

	_, err = Side(0).MarshalText()
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleEmployee, ParseRole("Employee"))
	assert.Equal(t, RoleCustomer, ParseRole(" customer"))
	assert.False(t, ParseRole("admin").IsAvailable())
	assert.False(t, ParseRole("").IsAvailable())
}

func TestQuoteSourceText(t *testing.T) {
	for _, s := range []QuoteSource{QuoteSourceLive, QuoteSourceDegraded} {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var back QuoteSource
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}

	var s QuoteSource
	assert.Error(t, s.UnmarshalText([]byte("stale")))
	assert.Equal(t, "unknown", QuoteSource(9).String())
}
