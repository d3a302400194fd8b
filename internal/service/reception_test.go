package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

func TestCreateReceptionSplitsABIntoTwoRows(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	result, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-100", Type: model.TypeOrina, Category: model.CategorySplit},
		SampleEntry{External: "EXT-101", Type: model.TypePelo, Category: model.CategoryA},
	))
	require.NoError(t, err)
	require.Len(t, result.SampleIDs, 3)

	var samples []model.Sample
	require.NoError(t, db.Where("external_id = ?", "EXT-100").Order("category").Find(&samples).Error)
	require.Len(t, samples, 2)
	assert.Equal(t, model.CategoryA, samples[0].Category)
	assert.Equal(t, model.CategoryB, samples[1].Category)
	for _, sample := range samples {
		assert.Equal(t, model.StatusReceived, sample.Status)
		assert.Equal(t, result.ReceptionID, sample.ReceptionID)
		assert.Equal(t, "Chilexpress", sample.ShippingType)
	}
}

func TestCreateReceptionCreatesCharacteristicPerSample(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	result, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-200", Type: model.TypeSaliva, Category: model.CategorySplit},
	))
	require.NoError(t, err)

	for _, id := range result.SampleIDs {
		var count int64
		require.NoError(t, db.Model(&model.CharacteristicSample{}).Where("sample_id = ?", id).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	}
}

func TestCreateReceptionAllocatesDistinctIDs(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	first, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-1", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)
	second, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-2", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)

	assert.Equal(t, first.ReceptionID+1, second.ReceptionID)
}

func TestCreateReceptionReusesIDOfDeletedGroups(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	first, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-1", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)
	// Allocation scans live rows only, so a fully deleted group frees its id
	for _, id := range first.SampleIDs {
		require.NoError(t, svc.Delete(id))
	}

	second, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-2", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)
	assert.Equal(t, first.ReceptionID, second.ReceptionID)
}

func TestCreateReceptionValidation(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	in := intakeInput(company.ID,
		SampleEntry{External: "", Type: "plasma", Category: "C"})
	in.ShippingType = "otros"

	_, err := svc.Create(in)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "samples.0.external")
	assert.Contains(t, validation.Fields, "samples.0.type")
	assert.Contains(t, validation.Fields, "samples.0.category")
	assert.Contains(t, validation.Fields, "custom_shipping_type")

	var count int64
	require.NoError(t, db.Model(&model.Sample{}).Count(&count).Error)
	assert.Zero(t, count, "validation failure must not write")
}

func TestCreateReceptionUnknownCompanyRollsBack(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReceptionService(db)

	_, err := svc.Create(intakeInput(9999,
		SampleEntry{External: "EXT-1", Type: model.TypeOrina, Category: model.CategoryA}))
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "company_id")

	var count int64
	require.NoError(t, db.Model(&model.Sample{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateReceptionCustomCarrier(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	in := intakeInput(company.ID,
		SampleEntry{External: "EXT-1", Type: model.TypeSuero, Category: model.CategoryA})
	in.ShippingType = "otros"
	in.CustomShippingType = "Transporte Lagos"

	result, err := svc.Create(in)
	require.NoError(t, err)

	var sample model.Sample
	require.NoError(t, db.First(&sample, result.SampleIDs[0]).Error)
	assert.Equal(t, "Transporte Lagos", sample.ShippingType)
}

func TestUpdateReceptionReconcilesMembership(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	created, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-101", Type: model.TypeOrina, Category: model.CategoryA},
		SampleEntry{External: "EXT-102", Type: model.TypeOrina, Category: model.CategoryA},
		SampleEntry{External: "EXT-103", Type: model.TypePelo, Category: model.CategoryB},
	))
	require.NoError(t, err)
	keep := []uint{created.SampleIDs[0], created.SampleIDs[2]}
	dropped := created.SampleIDs[1]

	err = svc.Update(created.ReceptionID, UpdateReceptionInput{
		CompanyID:    company.ID,
		SentAt:       date(2026, time.March, 3),
		ReceivedAt:   date(2026, time.March, 5),
		Description:  "reenviado",
		ShippingType: "Starken",
		Samples: []SampleRow{
			{ID: keep[0], External: "EXT-101-R", Type: model.TypeOrina, Category: model.CategoryB},
			{ID: keep[1], External: "EXT-103", Type: model.TypePelo, Category: model.CategoryB},
		},
	})
	require.NoError(t, err)

	// Omitted sample and its characteristic are gone
	var count int64
	require.NoError(t, db.Model(&model.Sample{}).Where("id = ?", dropped).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.CharacteristicSample{}).Where("sample_id = ?", dropped).Count(&count).Error)
	assert.Zero(t, count)

	// Shared fields updated on survivors, per-row fields applied
	var updated model.Sample
	require.NoError(t, db.First(&updated, keep[0]).Error)
	assert.Equal(t, "EXT-101-R", updated.ExternalID)
	assert.Equal(t, model.CategoryB, updated.Category)
	assert.Equal(t, "Starken", updated.ShippingType)
	assert.Equal(t, "reenviado", updated.Description)

	var survivor model.Sample
	require.NoError(t, db.First(&survivor, keep[1]).Error)
	assert.Equal(t, "Starken", survivor.ShippingType)
}

func TestUpdateReceptionRejectsForeignSample(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	first, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-1", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)
	second, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-2", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)

	err = svc.Update(first.ReceptionID, UpdateReceptionInput{
		CompanyID:    company.ID,
		SentAt:       date(2026, time.March, 2),
		ReceivedAt:   date(2026, time.March, 4),
		ShippingType: "Chilexpress",
		Samples: []SampleRow{
			// Claims a sample from the other reception
			{ID: second.SampleIDs[0], External: "EXT-2", Type: model.TypeOrina, Category: model.CategoryA},
		},
	})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	// Rollback: the first group's own sample must survive the attempted
	// omission delete
	var count int64
	require.NoError(t, db.Model(&model.Sample{}).Where("id = ?", first.SampleIDs[0]).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateReceptionUnknownGroup(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	err := svc.Update(777, UpdateReceptionInput{
		CompanyID:    company.ID,
		SentAt:       date(2026, time.March, 2),
		ReceivedAt:   date(2026, time.March, 4),
		ShippingType: "Chilexpress",
		Samples:      []SampleRow{{ID: 1, External: "X", Type: model.TypeOrina, Category: model.CategoryA}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSampleRemovesCharacteristic(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	created, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-1", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(created.SampleIDs[0]))

	var count int64
	require.NoError(t, db.Model(&model.CharacteristicSample{}).
		Where("sample_id = ?", created.SampleIDs[0]).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.Delete(created.SampleIDs[0]), ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	svc := NewReceptionService(db)

	created, err := svc.Create(intakeInput(company.ID,
		SampleEntry{External: "EXT-1", Type: model.TypeOrina, Category: model.CategoryA}))
	require.NoError(t, err)
	id := created.SampleIDs[0]

	require.NoError(t, svc.UpdateStatus(id, model.StatusInReview))
	// Backwards moves are allowed
	require.NoError(t, svc.UpdateStatus(id, model.StatusReceived))

	var validation *ValidationError
	require.ErrorAs(t, svc.UpdateStatus(id, 6), &validation)
	assert.ErrorIs(t, svc.UpdateStatus(99999, model.StatusInProcess), ErrNotFound)
}
