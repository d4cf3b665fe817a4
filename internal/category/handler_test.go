package category

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCounter map[string]int

func (s staticCounter) CategoryCounts(ctx context.Context) (map[string]int, error) {
	return s, nil
}

func TestCategoryRoute(t *testing.T) {
	repo := NewInMemoryRepository(staticCounter{"Sci-Fi": 2, "Mystery": 1, "": 4})
	app := fiber.New()
	NewHandler(NewService(repo)).RegisterPublicRoutes(app)

	res, err := app.Test(httptest.NewRequest("GET", "/categories", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var got []Category
	b, _ := io.ReadAll(res.Body)
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, []Category{{Name: "Mystery", BookCount: 1}, {Name: "Sci-Fi", BookCount: 2}}, got)
}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT category, COUNT\\(\\*\\)").
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).AddRow("Fantasy", 3).AddRow("Romance", 1))

	got, err := NewPostgresRepository(db).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Category{{Name: "Fantasy", BookCount: 3}, {Name: "Romance", BookCount: 1}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
