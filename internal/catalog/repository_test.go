package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "slug", "name", "price_minor_units", "stock_qty", "in_stock", "status", "images"}

func TestPostgresRepository_GetProduct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getProductSQL)).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow("p1", "shirt", "Shirt", int64(5000), 7, true, "published", []string{"a.jpg", "b.jpg"}))

	repo := NewPostgresRepository(mock)
	p, err := repo.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "shirt", p.Slug)
	assert.Equal(t, int64(5000), p.PriceMinorUnits)
	assert.Equal(t, 7, p.StockQty)
	assert.Equal(t, StatusPublished, p.Status)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetProductMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getProductSQL)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := NewPostgresRepository(mock).GetProduct(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetProductError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(getProductSQL)).
		WithArgs("p1").
		WillReturnError(boom)

	_, err = NewPostgresRepository(mock).GetProduct(context.Background(), "p1")
	assert.ErrorIs(t, err, boom)
}
