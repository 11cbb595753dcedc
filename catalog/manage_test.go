package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"pickup-kitchen/apperr"
	"pickup-kitchen/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCategory_Validation(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Now().UTC()

	tests := []struct {
		name    string
		cat     models.MenuCategory
		itemIDs []uint
		field   string
	}{
		{name: "missing_name", cat: models.MenuCategory{StartDate: now, EndDate: now.Add(time.Hour)}, field: "name"},
		{name: "end_before_start", cat: models.MenuCategory{Name: "Late", StartDate: now, EndDate: now.Add(-time.Hour)}, field: "end_date"},
		{name: "end_equals_start", cat: models.MenuCategory{Name: "Flash", StartDate: now, EndDate: now}, field: "end_date"},
		{name: "unknown_item", cat: models.MenuCategory{Name: "Brunch", StartDate: now, EndDate: now.Add(time.Hour)}, itemIDs: []uint{9999}, field: "item_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveCategory(context.Background(), &tt.cat, tt.itemIDs)
			var verr apperr.ValidationError
			require.True(t, errors.As(err, &verr), err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSaveCategory_CreateUpdateAndRelink(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustCreate(t, db, item(401, "Idli", "3.00"), item(402, "Vada", "3.50"))

	cat := &models.MenuCategory{Name: " Breakfast ", IsActive: true, StartDate: now, EndDate: now.AddDate(0, 1, 0)}
	require.NoError(t, store.SaveCategory(ctx, cat, []uint{401, 402, 401}))
	require.NotZero(t, cat.ID)
	assert.Equal(t, "Breakfast", cat.Name)
	assert.Equal(t, uint(1), cat.RestaurantID)

	items, err := store.ListItemsForCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{401, 402}, itemIDs(items))

	cat.Name = "Morning"
	require.NoError(t, store.SaveCategory(ctx, cat, []uint{402}))

	items, err = store.ListItemsForCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{402}, itemIDs(items))

	got, err := store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning", got.Name)

	// bring 401 back: the soft-deleted link is revived, not duplicated
	require.NoError(t, store.SaveCategory(ctx, cat, []uint{401, 402}))
	var links int64
	require.NoError(t, db.Model(&models.MenuItemCategory{}).Where("menu_category_id = ?", cat.ID).Count(&links).Error)
	assert.Equal(t, int64(2), links)
}

func TestDeleteCategory(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, db, category(30, "Dinner", true, time.Now().UTC().AddDate(0, 1, 0)))

	require.NoError(t, store.DeleteCategory(ctx, 30))
	_, err := store.GetCategory(ctx, 30)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	assert.True(t, errors.Is(store.DeleteCategory(ctx, 30), apperr.ErrNotFound))
	assert.True(t, errors.Is(store.DeleteCategory(ctx, 2), apperr.ErrInvalidInput))
}

func TestSaveMenuItem(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, db, category(40, "Curries", true, time.Now().UTC().AddDate(0, 1, 0)))

	var half models.Quantity
	require.NoError(t, db.Where("size = ?", "Half").First(&half).Error)

	it := &models.MenuItem{
		Name:        "Dal Makhani",
		Price:       decimal.RequireFromString("11.75"),
		IsAvailable: true,
		FoodTypeID:  2,
	}
	require.NoError(t, store.SaveMenuItem(ctx, it, []uint{half.ID}, []uint{40}))
	require.NotZero(t, it.ID)

	items, err := store.ListItemsForCategory(ctx, 40)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].Quantities, 1)
	assert.Equal(t, "Half", items[0].Quantities[0].Size)

	it.Price = decimal.RequireFromString("12.00")
	require.NoError(t, store.SaveMenuItem(ctx, it, nil, []uint{40}))
	got, err := store.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.00", got.Price.StringFixed(2))
	assert.Empty(t, got.Quantities)

	require.NoError(t, store.DeleteMenuItem(ctx, it.ID))
	_, err = store.GetItemByID(ctx, it.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSaveMenuItem_Validation(t *testing.T) {
	store, db := newTestStore(t)
	retired := category(41, "Retired", false, time.Now().UTC().AddDate(0, 1, 0))
	retired.IsDeleted = true
	mustCreate(t, db, retired)

	tests := []struct {
		name        string
		item        models.MenuItem
		quantityIDs []uint
		categoryIDs []uint
		field       string
	}{
		{name: "missing_name", item: models.MenuItem{Price: decimal.NewFromInt(1), FoodTypeID: 1}, field: "name"},
		{name: "zero_price", item: models.MenuItem{Name: "Free", FoodTypeID: 1}, field: "price"},
		{name: "three_decimals", item: models.MenuItem{Name: "Odd", Price: decimal.RequireFromString("1.005"), FoodTypeID: 1}, field: "price"},
		{name: "unknown_food_type", item: models.MenuItem{Name: "Mystery", Price: decimal.NewFromInt(1), FoodTypeID: 99}, field: "food_type_id"},
		{name: "unknown_quantity", item: models.MenuItem{Name: "Soup", Price: decimal.NewFromInt(1), FoodTypeID: 1}, quantityIDs: []uint{999}, field: "quantity_ids"},
		{name: "unknown_category", item: models.MenuItem{Name: "Stew", Price: decimal.NewFromInt(1), FoodTypeID: 1}, categoryIDs: []uint{999}, field: "category_ids"},
		{name: "deleted_category", item: models.MenuItem{Name: "Korma", Price: decimal.NewFromInt(1), FoodTypeID: 1}, categoryIDs: []uint{41}, field: "category_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveMenuItem(context.Background(), &tt.item, tt.quantityIDs, tt.categoryIDs)
			var verr apperr.ValidationError
			require.True(t, errors.As(err, &verr), err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	var links int64
	require.NoError(t, db.Model(&models.MenuItemCategory{}).Count(&links).Error)
	assert.Zero(t, links, "a rejected save leaves no dangling links")
}

func TestPickupTimes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	noon := &models.PickupTime{Label: "12:00 PM", IsActive: true}
	late := &models.PickupTime{Label: "9:00 PM"}
	require.NoError(t, store.SavePickupTime(ctx, noon))
	require.NoError(t, store.SavePickupTime(ctx, late))

	active, err := store.ListPickupTimes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "12:00 PM", active[0].Label)

	all, err := store.ListPickupTimes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeletePickupTime(ctx, late.ID))
	assert.True(t, errors.Is(store.DeletePickupTime(ctx, late.ID), apperr.ErrNotFound))
	assert.True(t, errors.Is(store.SavePickupTime(ctx, &models.PickupTime{}), apperr.ErrInvalidInput))
}
