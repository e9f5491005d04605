package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSession struct {
	connectErr  error
	connects    int
	disconnects int
}

func (s *countingSession) Connect(_ context.Context) error {
	s.connects++
	return s.connectErr
}

func (*countingSession) Execute(_ context.Context, _ Statement) ([]Row, error) {
	return nil, nil
}

func (s *countingSession) Disconnect() {
	s.disconnects++
}

func TestWithSession(t *testing.T) {
	t.Run("disconnects after success", func(t *testing.T) {
		s := &countingSession{}
		err := WithSession(context.Background(), FactoryFunc(func() Session { return s }), func(Session) error {
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, s.connects)
		assert.Equal(t, 1, s.disconnects)
	})

	t.Run("disconnects after callback error", func(t *testing.T) {
		s := &countingSession{}
		boom := errors.New("boom")
		err := WithSession(context.Background(), FactoryFunc(func() Session { return s }), func(Session) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, s.disconnects)
	})

	t.Run("disconnects after connect failure without running callback", func(t *testing.T) {
		s := &countingSession{connectErr: &ConnectionError{Op: "connect", Err: errors.New("refused")}}
		called := false
		err := WithSession(context.Background(), FactoryFunc(func() Session { return s }), func(Session) error {
			called = true
			return nil
		})
		assert.True(t, IsConnection(err))
		assert.False(t, called)
		assert.Equal(t, 1, s.disconnects)
	})

	t.Run("disconnects after panic", func(t *testing.T) {
		s := &countingSession{}
		assert.Panics(t, func() {
			_ = WithSession(context.Background(), FactoryFunc(func() Session { return s }), func(Session) error {
				panic("handler bug")
			})
		})
		assert.Equal(t, 1, s.disconnects)
	})
}
