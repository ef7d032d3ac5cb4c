package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adewale-ajadi/exam-extractor/internal/common"
)

func TestNewPool_EmptySetFailsFast(t *testing.T) {
	_, err := NewPool(nil)
	require.ErrorIs(t, err, common.ErrNoCredentials)

	_, err = NewPool([]string{"", "   "})
	require.ErrorIs(t, err, common.ErrNoCredentials)
}

func TestNewPool_DropsDuplicatesKeepsOrder(t *testing.T) {
	p, err := NewPool([]string{"key-a", "key-b", "key-a", " key-c "})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())

	// first acquire goes to the first configured credential
	assert.Equal(t, Credential("key-a"), p.Acquire())
}

func TestAcquire_NeverPicksMoreUsedWhileLessUsedExists(t *testing.T) {
	p, err := NewPool([]string{"a", "b", "c"})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		before := p.UsageSnapshot()
		got := p.Acquire()
		for c, n := range before {
			assert.LessOrEqual(t, before[got], n,
				"acquired %q (count %d) while %q had count %d", got, before[got], c, n)
		}
	}
}

func TestAcquire_BalanceInvariant(t *testing.T) {
	p, err := NewPool([]string{"a", "b", "c"})
	require.NoError(t, err)

	for i := 0; i < 31; i++ {
		p.Acquire()

		usage := p.UsageSnapshot()
		min, max := -1, -1
		for _, n := range usage {
			if min == -1 || n < min {
				min = n
			}
			if n > max {
				max = n
			}
		}
		assert.LessOrEqual(t, max-min, 1, "usage spread exceeded 1 after %d acquires: %v", i+1, usage)
	}
}

func TestAcquire_TieBreaksByConfiguredOrder(t *testing.T) {
	p, err := NewPool([]string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, Credential("first"), p.Acquire())
	assert.Equal(t, Credential("second"), p.Acquire())
	assert.Equal(t, Credential("first"), p.Acquire())
}
