package circuit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

// =============================================================================
// Opening
// =============================================================================

func (s *BreakerSuite) TestStartsClosed() {
	b := New("audit-kafka")
	s.False(b.IsOpen())
	s.Equal(StateClosed, b.State())
	s.Equal("closed", b.State().String())
	s.Equal("audit-kafka", b.Name())
}

func (s *BreakerSuite) TestOpensAfterConsecutiveFailures() {
	b := New("redis", WithFailureThreshold(3))

	for range 2 {
		fallback, change := b.RecordFailure()
		s.False(fallback)
		s.False(change.Opened)
	}

	fallback, change := b.RecordFailure()
	s.True(fallback)
	s.True(change.Opened)
	s.Equal("open", b.State().String())

	s.Run("further failures report no transition", func() {
		fallback, change := b.RecordFailure()
		s.True(fallback)
		s.False(change.Opened)
	})
}

func (s *BreakerSuite) TestSuccessResetsFailureStreak() {
	b := New("redis", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	primary, change := b.RecordSuccess()
	s.True(primary)
	s.False(change.Closed)

	b.RecordFailure()
	b.RecordFailure()
	s.False(b.IsOpen())
	b.RecordFailure()
	s.True(b.IsOpen())
}

func (s *BreakerSuite) TestNonPositiveThresholdsKeepDefaults() {
	b := New("redis", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range defaultFailureThreshold - 1 {
		b.RecordFailure()
	}
	s.False(b.IsOpen())
	b.RecordFailure()
	s.True(b.IsOpen())
}

// =============================================================================
// Closing
// =============================================================================

func (s *BreakerSuite) TestClosesAfterSuccessStreak() {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	primary, change := b.RecordSuccess()
	s.False(primary)
	s.False(change.Closed)
	s.True(b.IsOpen())

	primary, change = b.RecordSuccess()
	s.True(primary)
	s.True(change.Closed)
	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestFailureWhileOpenRestartsSuccessStreak() {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(3))
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordSuccess()
	s.True(b.IsOpen())
	b.RecordSuccess()
	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestReset() {
	b := New("redis", WithFailureThreshold(1))
	b.RecordFailure()
	s.Require().True(b.IsOpen())

	b.Reset()
	s.Equal(StateClosed, b.State())

	_, change := b.RecordFailure()
	s.True(change.Opened, "reset clears the failure count too")
}
