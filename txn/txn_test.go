package txn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginDuplicateReported(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.Begin("T1", &out)
	out.Reset()
	m.Begin("T1", &out)
	assert.Equal(t, "T1 already exists\n", out.String())
}

func TestFirstCommitterWins(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.Begin("T1", &out)
	m.Begin("T2", &out)
	out.Reset()

	m.Write("T1", 1, 101, &out)
	m.Write("T2", 1, 202, &out)
	m.End("T1", &out)
	m.End("T2", &out)

	assert.Equal(t, "T1 commits\nT2 aborts (First-committer-wins conflict on x1 with T1)\n", out.String())

	v, ok := m.Store().GetLatest(1, 1)
	require.True(t, ok)
	assert.Equal(t, 101, v.Value)
}

func TestSiteFailureAbortsAccessor(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.Begin("T1", &out)
	out.Reset()

	m.Read("T1", 2, &out)
	assert.Equal(t, "T1: R(x2) -> 20\n", out.String())
	out.Reset()

	// With every site up, x2 is read from site 1, the lowest site ID.
	m.Sites().Fail(1, m.Now())
	m.HandleSiteFailure(1, &out)
	assert.Equal(t, "T1 aborts (site 1 failed)\n", out.String())
}

func TestNoEligibleSiteStillAllowsCommit(t *testing.T) {
	// x1's home site is site 1 (home_site(1) = 1+((1-1) mod 10) = 1); fail
	// it so the only holder of x1 is unavailable.
	m := New()
	var out bytes.Buffer
	m.Sites().Fail(1, m.Now())
	m.Advance()

	m.Begin("T1", &out)
	out.Reset()
	m.Read("T1", 1, &out)
	assert.Equal(t, "T1: R(x1) -> cannot read (no eligible site)\n", out.String())
	out.Reset()

	m.End("T1", &out)
	assert.Equal(t, "T1 commits\n", out.String())
}

func TestReadFromOwnWriteSetDoesNotTouchReadSet(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.Begin("T1", &out)
	out.Reset()

	m.Write("T1", 2, 999, &out)
	m.Read("T1", 2, &out)
	assert.Equal(t, "T1: R(x2) -> 999 (from write set)\n", out.String())
}

func TestRecoveryReroutesReadAwayFromStaleSite(t *testing.T) {
	m := New()
	var out bytes.Buffer

	m.Begin("T1", &out)
	out.Reset()
	m.Write("T1", 2, 222, &out)
	m.End("T1", &out)
	assert.Equal(t, "T1 commits\n", out.String())
	out.Reset()

	m.Sites().Fail(3, m.Now())
	m.Advance()
	m.Sites().Recover(3, m.Now())
	m.Advance()

	m.Begin("T2", &out)
	out.Reset()
	m.Read("T2", 2, &out)
	assert.Equal(t, "T2: R(x2) -> 222\n", out.String())
	out.Reset()
	m.End("T2", &out)
	assert.Equal(t, "T2 commits\n", out.String())
}

func TestEndOnNonActiveReportsStatus(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.Begin("T1", &out)
	out.Reset()
	m.End("T1", &out)
	out.Reset()
	m.End("T1", &out)
	assert.Equal(t, "T1 is already Committed\n", out.String())
}

func TestWriteSkewAborted(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.Begin("T1", &out)
	m.Begin("T2", &out)
	out.Reset()

	m.Read("T1", 1, &out)
	m.Read("T2", 3, &out)
	m.Write("T1", 3, 77, &out)
	m.Write("T2", 1, 88, &out)
	out.Reset()

	m.End("T1", &out)
	m.End("T2", &out)
	assert.Equal(t, "T1 commits\nT2 aborts (Serialization cycle detected)\n", out.String())
}
