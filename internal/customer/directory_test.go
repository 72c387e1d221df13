package customer

import (
	"testing"

	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := t.Context()
	dir := NewMemory(
		model.Customer{Number: "C-1", FirstName: "Ada"},
		model.Customer{ID: 10, Number: " C-10 ", FirstName: "Grace"},
	)

	c, err := dir.FindByNumber(ctx, "C-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)

	c, err = dir.FindByNumber(ctx, "C-10")
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.ID)

	c, err = dir.FindByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Grace", c.FirstName)

	added, err := dir.Add(model.Customer{Number: "C-11"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), added.ID)

	_, err = dir.FindByNumber(ctx, "missing")
	assert.True(t, errors.Is(err, exception.ErrNotFound))
	assert.Equal(t, "customer missing not found", exception.PublicMessage(err))

	_, err = dir.FindByID(ctx, 99)
	assert.True(t, errors.Is(err, exception.ErrNotFound))

	_, err = dir.FindByNumber(ctx, "   ")
	assert.True(t, errors.Is(err, exception.ErrInvalidArgument))

	_, err = dir.Add(model.Customer{Number: "C-1"})
	assert.True(t, errors.Is(err, exception.ErrConflict))
}

func TestMemoryManagement(t *testing.T) {
	ctx := t.Context()
	dir := NewMemory(
		model.Customer{Number: "C-1", FirstName: "Ada", LastName: "Lovelace"},
		model.Customer{Number: "C-2", FirstName: "Grace", LastName: "Hopper"},
	)

	created, err := dir.Create(ctx, model.Customer{ID: 50, Number: " C-3 ", FirstName: "Alan", LastName: "Turing"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
	assert.Equal(t, "C-3", created.Number)

	_, err = dir.Create(ctx, model.Customer{Number: "C-2"})
	assert.True(t, errors.Is(err, exception.ErrConflict))
	assert.Equal(t, "customer C-2 already exists", exception.PublicMessage(err))

	all, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C-1", "C-2", "C-3"}, []string{all[0].Number, all[1].Number, all[2].Number})

	found, err := dir.SearchByName(ctx, "  a ")
	require.NoError(t, err)
	require.Len(t, found, 3)

	found, err = dir.SearchByName(ctx, "ACE")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "C-1", found[0].Number)
	assert.Equal(t, "C-2", found[1].Number)

	found, err = dir.SearchByName(ctx, "grace hop")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = dir.SearchByName(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = dir.SearchByName(ctx, " ")
	assert.True(t, errors.Is(err, exception.ErrInvalidArgument))

	updated, err := dir.Update(ctx, model.Customer{ID: 99, Number: "C-2", FirstName: "Grace", LastName: "Murray", Email: "grace@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.ID)
	c, err := dir.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Murray", c.LastName)
	assert.Equal(t, "grace@example.com", c.Email)

	_, err = dir.Update(ctx, model.Customer{Number: "C-9"})
	assert.True(t, errors.Is(err, exception.ErrNotFound))

	require.NoError(t, dir.Delete(ctx, "C-1"))
	_, err = dir.FindByNumber(ctx, "C-1")
	assert.True(t, errors.Is(err, exception.ErrNotFound))
	_, err = dir.FindByID(ctx, 1)
	assert.True(t, errors.Is(err, exception.ErrNotFound))
	assert.True(t, errors.Is(dir.Delete(ctx, "C-1"), exception.ErrNotFound))

	// a deleted number can be registered again under a new id
	again, err := dir.Create(ctx, model.Customer{Number: "C-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), again.ID)
}
