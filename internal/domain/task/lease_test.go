package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeasePolicy(t *testing.T) {
	p, err := NewLeasePolicy(30*time.Second, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, p.Default())

	for _, tc := range []struct{ def, maxLease time.Duration }{
		{0, time.Minute},
		{-time.Second, 0},
		{2 * time.Minute, time.Minute},
	} {
		p, err := NewLeasePolicy(tc.def, tc.maxLease)
		require.ErrorIs(t, err, ErrInvalidLease)
		assert.Nil(t, p)
	}
}

func TestLeasePolicy_Resolve(t *testing.T) {
	p, err := NewLeasePolicy(30*time.Second, 5*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      time.Duration
		seconds int
		source  LeaseSource
	}{
		{"requested", 45 * time.Second, 45, LeaseRequested},
		{"default", 0, 30, LeaseDefault},
		{"sub-second", 300 * time.Millisecond, 1, LeaseClamped},
		{"negative", -time.Minute, 1, LeaseClamped},
		{"over maximum", time.Hour, 300, LeaseClamped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := p.Resolve(tt.in)
			assert.Equal(t, tt.seconds, l.Seconds)
			assert.Equal(t, tt.source, l.Source)
			assert.Equal(t, time.Duration(tt.seconds)*time.Second, l.Duration())
		})
	}
}

func TestLeasePolicy_NoMaximum(t *testing.T) {
	p, err := NewLeasePolicy(time.Minute, 0)
	require.NoError(t, err)
	assert.Equal(t, 7200, p.Resolve(2*time.Hour).Seconds)
}
