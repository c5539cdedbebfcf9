package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"inventory/internal/models"
	"inventory/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// clock returns base plus the offset currently stored in it.
type clock struct {
	offset time.Duration
}

func (c *clock) now() time.Time {
	return base.Add(c.offset)
}

type repoFactory func(t *testing.T, c *clock) repositories.ProductRepository

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func gormFactory(t *testing.T, c *clock) repositories.ProductRepository {
	return repositories.NewGORMProductRepository(newSQLiteDB(t)).WithClock(c.now)
}

func memoryFactory(_ *testing.T, c *clock) repositories.ProductRepository {
	return repositories.NewMemoryProductRepository().WithClock(c.now)
}

func factories() map[string]repoFactory {
	return map[string]repoFactory{
		"gorm":   gormFactory,
		"memory": memoryFactory,
	}
}

func product(name, category string, stock int, price string) *models.Product {
	return &models.Product{
		Name:     name,
		Category: category,
		Quantity: stock * 2,
		Stock:    stock,
		Price:    decimal.RequireFromString(price),
	}
}

func seed(t *testing.T, repo repositories.ProductRepository) []*models.Product {
	t.Helper()
	products := []*models.Product{
		product("Laptop", "Electronics", 5, "1200.00"),
		product("Mouse", "Accessories", 50, "25.50"),
		product("Gaming Laptop", "Electronics", 2, "2500.00"),
		product("Keyboard", "Accessories", 10, "75.00"),
	}
	for _, p := range products {
		require.NoError(t, repo.Save(context.Background(), p))
	}
	return products
}

func names(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestProductRepositoryContract(t *testing.T) {
	for name, newRepo := range factories() {
		newRepo := newRepo
		t.Run(name, func(t *testing.T) {
			runContract(t, newRepo)
		})
	}
}

func runContract(t *testing.T, newRepo repoFactory) {
	ctx := context.Background()

	t.Run("SaveAssignsIDAndCreatedAt", func(t *testing.T) {
		c := &clock{}
		repo := newRepo(t, c)

		first := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, first))
		second := product("Mouse", "Accessories", 50, "25.50")
		require.NoError(t, repo.Save(ctx, second))

		assert.NotZero(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
		assert.True(t, first.CreatedAt.Equal(base))
		assert.Nil(t, first.UpdatedAt)

		stored, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Laptop", stored.Name)
		assert.True(t, stored.Price.Equal(decimal.RequireFromString("1200")))
		assert.True(t, stored.CreatedAt.Equal(base))
		assert.Nil(t, stored.UpdatedAt)
	})

	t.Run("FindByIDMissing", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		_, err := repo.FindByID(ctx, 999)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("SaveExistingReplacesFields", func(t *testing.T) {
		c := &clock{}
		repo := newRepo(t, c)
		p := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, p))

		c.offset = time.Hour
		existing, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		existing.ReplaceWith(*product("Laptop Pro", "Computers", 0, "1499.99"))
		require.NoError(t, repo.Save(ctx, existing))

		stored, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Laptop Pro", stored.Name)
		assert.Equal(t, "Computers", stored.Category)
		assert.Equal(t, 0, stored.Stock)
		assert.Equal(t, 0, stored.Quantity)
		assert.True(t, stored.Price.Equal(decimal.RequireFromString("1499.99")))
		assert.True(t, stored.CreatedAt.Equal(base))
		require.NotNil(t, stored.UpdatedAt)
		assert.True(t, stored.UpdatedAt.Equal(base.Add(time.Hour)))
	})

	t.Run("SaveAfterDeleteDoesNotRecreate", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		p := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, p))

		existing, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteByID(ctx, p.ID))

		existing.ReplaceWith(*product("Laptop Pro", "Computers", 1, "1499.99"))
		assert.ErrorIs(t, repo.Save(ctx, existing), models.ErrNotFound)

		exists, err := repo.ExistsByID(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("SaveUnchangedRowSucceeds", func(t *testing.T) {
		c := &clock{}
		repo := newRepo(t, c)
		p := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, p))

		existing, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, existing))
		require.NoError(t, repo.Save(ctx, existing))
	})

	t.Run("FindByIDInsideTransaction", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		p := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, p))

		err := repo.Transaction(ctx, func(tx repositories.ProductRepository) error {
			found, err := tx.FindByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, "Laptop", found.Name)
			_, err = tx.FindByID(ctx, 999)
			assert.ErrorIs(t, err, models.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("UpdatedAtNeverBeforeCreatedAt", func(t *testing.T) {
		c := &clock{}
		repo := newRepo(t, c)
		p := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, p))

		c.offset = -time.Hour
		existing, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, existing))

		stored, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.UpdatedAt)
		assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
	})

	t.Run("ExistsAndDelete", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		p := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, p))

		exists, err := repo.ExistsByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, repo.DeleteByID(ctx, p.ID))
		exists, err = repo.ExistsByID(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		assert.NoError(t, repo.DeleteByID(ctx, p.ID))
	})

	t.Run("FindAll", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		seed(t, repo)
		all, err = repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Mouse", "Gaming Laptop", "Keyboard"}, names(all))
	})

	t.Run("FindByName", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		seed(t, repo)

		found, err := repo.FindByName(ctx, "Gaming Laptop")
		require.NoError(t, err)
		assert.Equal(t, "Gaming Laptop", found.Name)

		_, err = repo.FindByName(ctx, "laptop")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("FindByCategory", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		seed(t, repo)

		found, err := repo.FindByCategory(ctx, "Accessories")
		require.NoError(t, err)
		assert.Equal(t, []string{"Mouse", "Keyboard"}, names(found))

		found, err = repo.FindByCategory(ctx, "Garden")
		require.NoError(t, err)
		assert.NotNil(t, found)
		assert.Empty(t, found)
	})

	t.Run("FindByStockLessThanEqual", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		seed(t, repo)

		found, err := repo.FindByStockLessThanEqual(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Gaming Laptop"}, names(found))

		found, err = repo.FindByStockLessThanEqual(ctx, -1)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FindByPriceBetween", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		seed(t, repo)

		found, err := repo.FindByPriceBetween(ctx, decimal.RequireFromString("25.50"), decimal.RequireFromString("1200"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Mouse", "Keyboard"}, names(found))

		found, err = repo.FindByPriceBetween(ctx, decimal.RequireFromString("100"), decimal.RequireFromString("10"))
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FindByNameContainingIgnoreCase", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		seed(t, repo)

		found, err := repo.FindByNameContainingIgnoreCase(ctx, "LAP")
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Gaming Laptop"}, names(found))

		found, err = repo.FindByNameContainingIgnoreCase(ctx, "%")
		require.NoError(t, err)
		assert.Empty(t, found)

		found, err = repo.FindByNameContainingIgnoreCase(ctx, "")
		require.NoError(t, err)
		assert.Len(t, found, 4)
	})

	t.Run("FindByNameContainingIgnoreCaseFoldsUnicode", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		seed(t, repo)
		require.NoError(t, repo.Save(ctx, product("École Desk", "Furniture", 3, "300.00")))
		require.NoError(t, repo.Save(ctx, product("ÜBER Lamp", "Furniture", 4, "45.00")))

		found, err := repo.FindByNameContainingIgnoreCase(ctx, "éco")
		require.NoError(t, err)
		assert.Equal(t, []string{"École Desk"}, names(found))

		found, err = repo.FindByNameContainingIgnoreCase(ctx, "über")
		require.NoError(t, err)
		assert.Equal(t, []string{"ÜBER Lamp"}, names(found))

		found, err = repo.FindByNameContainingIgnoreCase(ctx, "É")
		require.NoError(t, err)
		assert.Equal(t, []string{"École Desk"}, names(found))
	})

	t.Run("TransactionRollsBack", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		kept := product("Laptop", "Electronics", 5, "1200.00")
		require.NoError(t, repo.Save(ctx, kept))

		boom := errors.New("boom")
		err := repo.Transaction(ctx, func(tx repositories.ProductRepository) error {
			require.NoError(t, tx.Save(ctx, product("Mouse", "Accessories", 50, "25.50")))
			require.NoError(t, tx.DeleteByID(ctx, kept.ID))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop"}, names(all))
	})

	t.Run("TransactionCommits", func(t *testing.T) {
		repo := newRepo(t, &clock{})
		err := repo.Transaction(ctx, func(tx repositories.ProductRepository) error {
			return tx.Save(ctx, product("Mouse", "Accessories", 50, "25.50"))
		})
		require.NoError(t, err)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mouse"}, names(all))
	})
}

func TestGORMProductRepository_StorageError(t *testing.T) {
	db := newSQLiteDB(t)
	repo := repositories.NewGORMProductRepository(db)
	require.NoError(t, db.Migrator().DropTable(&models.Product{}))

	_, err := repo.FindAll(context.Background())
	require.Error(t, err)

	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.True(t, strings.HasPrefix(storageErr.Error(), "failed to get all products"))
	assert.NotErrorIs(t, err, models.ErrNotFound)
}
