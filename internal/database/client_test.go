package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type row struct {
	Name string `json:"name"`
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Query(ctx context.Context, query string, params map[string]any) ([]row, error) {
	args := m.Called(ctx, query, params)
	rows, _ := args.Get(0).([]row)
	return rows, args.Error(1)
}

func (m *mockExecutor) QueryOne(ctx context.Context, query string, params map[string]any) (*row, error) {
	args := m.Called(ctx, query, params)
	r, _ := args.Get(0).(*row)
	return r, args.Error(1)
}

func (m *mockExecutor) Execute(ctx context.Context, query string, params map[string]any) error {
	args := m.Called(ctx, query, params)
	return args.Error(0)
}

type nopConn struct{}

func (nopConn) DB() (*surrealdb.DB, error) { return nil, ErrNotConnected }

func testConfig() *config.Config {
	return &config.Config{DBQueryTimeout: time.Second, DBExecuteTimeout: 2 * time.Second}
}

func newMockClient(t *testing.T) (Client[row], *mockExecutor) {
	t.Helper()
	exec := &mockExecutor{}
	c, err := NewClient[row](nopConn{}, testConfig(), WithExecutor[row](exec))
	require.NoError(t, err)
	return c, exec
}

func TestNewClientValidatesInputs(t *testing.T) {
	_, err := NewClient[row](nil, testConfig())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewClient[row](nopConn{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewClient[row](nopConn{}, &config.Config{DBExecuteTimeout: time.Second})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClientCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("maps duplicates to ErrAlreadyExists", func(t *testing.T) {
		c, exec := newMockClient(t)
		exec.On("QueryOne", mock.Anything, "CREATE type::table($table) CONTENT $data", mock.Anything).
			Return(nil, errors.New("Database index `user_email` already contains 'a@b.c'"))

		_, err := c.Create(ctx, "user", map[string]any{"email": "a@b.c"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("rejects empty table", func(t *testing.T) {
		c, _ := newMockClient(t)
		_, err := c.Create(ctx, "", map[string]any{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("returns created row", func(t *testing.T) {
		c, exec := newMockClient(t)
		exec.On("QueryOne", mock.Anything, mock.Anything, mock.Anything).Return(&row{Name: "x"}, nil)

		got, err := c.Create(ctx, "thing", map[string]any{"name": "x"})
		require.NoError(t, err)
		assert.Equal(t, "x", got.Name)
		exec.AssertExpectations(t)
	})
}

func TestClientSelectNotFound(t *testing.T) {
	c, exec := newMockClient(t)
	exec.On("QueryOne", mock.Anything, "SELECT * FROM $id", mock.MatchedBy(func(p map[string]any) bool {
		id, ok := p["id"].(surrealmodels.RecordID)
		return ok && id.Table == "thing" && id.ID == "abc"
	})).Return(nil, nil)

	_, err := c.Select(context.Background(), "thing:abc")
	assert.ErrorIs(t, err, ErrNotFound)
	exec.AssertExpectations(t)
}

func TestClientAppliesTimeouts(t *testing.T) {
	c, exec := newMockClient(t)
	exec.On("Query", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	}), "SELECT 1", mock.Anything).Return([]row{}, nil)

	ctx := WithQueryTimeout(context.Background(), 50*time.Millisecond)
	_, err := c.Query(ctx, "SELECT 1", nil)
	require.NoError(t, err)
	exec.AssertExpectations(t)
}

func TestRecordID(t *testing.T) {
	id, ok := recordID("gift_idea:k1").(surrealmodels.RecordID)
	require.True(t, ok)
	assert.Equal(t, "gift_idea", id.Table)
	assert.Equal(t, "k1", id.ID)

	assert.Equal(t, "nocolon", recordID("nocolon"))
}

func TestHasLimitClause(t *testing.T) {
	assert.True(t, hasLimitClause("SELECT * FROM x LIMIT 1"))
	assert.False(t, hasLimitClause("SELECT * FROM unlimited"))
}
