package service

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

// receptionLockKey is the advisory lock key serializing reception id
// allocation on postgres. Other dialects serialize writes themselves.
const receptionLockKey = 982345117

// ReceptionService implements sample batch intake and group edit
type ReceptionService struct {
	db *gorm.DB
}

// NewReceptionService creates a reception service on the given database
func NewReceptionService(db *gorm.DB) *ReceptionService {
	return &ReceptionService{db: db}
}

// SampleEntry is one requested sample line at intake. Category "A-B"
// expands into two rows, one A and one B, sharing code and type.
type SampleEntry struct {
	External string `json:"external"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// CreateReceptionInput carries the shipment metadata and sample lines of
// one intake submission
type CreateReceptionInput struct {
	CompanyID          uint
	SentAt             time.Time
	ReceivedAt         time.Time
	Description        string
	ShippingType       string
	CustomShippingType string
	UserID             uint
	Samples            []SampleEntry
}

// CreateReceptionResult reports the created group
type CreateReceptionResult struct {
	ReceptionID uint   `json:"reception_id"`
	SampleIDs   []uint `json:"sample_ids"`
}

func (in *CreateReceptionInput) validate() error {
	v := newValidator()
	if in.CompanyID == 0 {
		v.add("company_id", "required")
	}
	if in.SentAt.IsZero() {
		v.add("sent_at", "required")
	}
	if in.ReceivedAt.IsZero() {
		v.add("received_at", "required")
	}
	if !model.IsValidShippingType(in.ShippingType) {
		v.add("shipping_type", "invalid carrier")
	}
	if in.ShippingType == "otros" && in.CustomShippingType == "" {
		v.add("custom_shipping_type", "required when shipping_type is otros")
	}
	if len(in.Samples) == 0 {
		v.add("samples", "at least one sample required")
	}
	for i, s := range in.Samples {
		if s.External == "" {
			v.add(fmt.Sprintf("samples.%d.external", i), "required")
		}
		if !model.IsValidType(s.Type) {
			v.add(fmt.Sprintf("samples.%d.type", i), "invalid sample type")
		}
		if s.Category != model.CategoryA && s.Category != model.CategoryB && s.Category != model.CategorySplit {
			v.add(fmt.Sprintf("samples.%d.category", i), "must be A, B or A-B")
		}
	}
	return v.err()
}

// carrier resolves the stored shipping type, substituting the custom
// carrier name when "otros" was selected
func carrier(shippingType, custom string) string {
	if shippingType == "otros" {
		return custom
	}
	return shippingType
}

// nextReceptionID allocates max(reception_id)+1 over non-deleted samples.
// Allocation must be serialized: two concurrent intakes sharing an id
// would corrupt the batch grouping invariant.
func nextReceptionID(tx *gorm.DB) (uint, error) {
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", receptionLockKey).Error; err != nil {
			return 0, err
		}
	}
	var max sql.NullInt64
	if err := tx.Model(&model.Sample{}).Select("MAX(reception_id)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return uint(max.Int64) + 1, nil
}

// Create registers one intake submission: every resulting row shares a
// freshly allocated reception id, status Recepcionada and an empty
// characteristic record. All-or-nothing: any failure rolls back the
// whole batch.
func (s *ReceptionService) Create(in CreateReceptionInput) (*CreateReceptionResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	result := &CreateReceptionResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var company model.Company
		if err := tx.First(&company, in.CompanyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &ValidationError{Fields: map[string]string{"company_id": "company does not exist"}}
			}
			return err
		}

		receptionID, err := nextReceptionID(tx)
		if err != nil {
			return err
		}
		result.ReceptionID = receptionID

		now := time.Now()
		shipping := carrier(in.ShippingType, in.CustomShippingType)

		for _, entry := range in.Samples {
			categories := []string{entry.Category}
			if entry.Category == model.CategorySplit {
				categories = []string{model.CategoryA, model.CategoryB}
			}
			for _, category := range categories {
				sample := model.Sample{
					ExternalID:   entry.External,
					Type:         entry.Type,
					Category:     category,
					Status:       model.StatusReceived,
					ReceptionID:  receptionID,
					Description:  in.Description,
					ShippingType: shipping,
					SentAt:       &in.SentAt,
					ReceivedAt:   &in.ReceivedAt,
					CompanyID:    in.CompanyID,
					UserID:       in.UserID,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := tx.Create(&sample).Error; err != nil {
					return err
				}
				// Explicit two-step insert keeps the 1:1 pairing a
				// contract of intake instead of an ORM side effect.
				characteristic := model.CharacteristicSample{SampleID: sample.ID}
				if err := tx.Create(&characteristic).Error; err != nil {
					return err
				}
				result.SampleIDs = append(result.SampleIDs, sample.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SampleRow is the desired state of one existing sample in a group edit
type SampleRow struct {
	ID       uint   `json:"id"`
	External string `json:"external"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// UpdateReceptionInput carries the complete desired membership and the
// shared shipment fields of a reception group. Membership shrinkage is
// expressed by omission.
type UpdateReceptionInput struct {
	CompanyID          uint
	SentAt             time.Time
	ReceivedAt         time.Time
	Description        string
	ShippingType       string
	CustomShippingType string
	Samples            []SampleRow
}

func (in *UpdateReceptionInput) validate() error {
	v := newValidator()
	if in.CompanyID == 0 {
		v.add("company_id", "required")
	}
	if in.SentAt.IsZero() {
		v.add("sent_at", "required")
	}
	if in.ReceivedAt.IsZero() {
		v.add("received_at", "required")
	}
	if in.ShippingType == "" {
		v.add("shipping_type", "required")
	}
	if len(in.Samples) == 0 {
		v.add("samples", "at least one sample required")
	}
	for i, s := range in.Samples {
		if s.ID == 0 {
			v.add(fmt.Sprintf("samples.%d.id", i), "required")
		}
		if !model.IsValidType(s.Type) {
			v.add(fmt.Sprintf("samples.%d.type", i), "invalid sample type")
		}
		if s.Category != model.CategoryA && s.Category != model.CategoryB {
			v.add(fmt.Sprintf("samples.%d.category", i), "must be A or B")
		}
	}
	return v.err()
}

// Update reconciles a reception group to the desired state: samples
// omitted from the list are deleted, shared shipment fields are updated
// on the remainder and per-row fields are updated individually, all in
// one transaction.
func (s *ReceptionService) Update(receptionID uint, in UpdateReceptionInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	keepIDs := make([]uint, 0, len(in.Samples))
	for _, row := range in.Samples {
		keepIDs = append(keepIDs, row.ID)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var company model.Company
		if err := tx.First(&company, in.CompanyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &ValidationError{Fields: map[string]string{"company_id": "company does not exist"}}
			}
			return err
		}

		var groupCount int64
		if err := tx.Model(&model.Sample{}).Where("reception_id = ?", receptionID).Count(&groupCount).Error; err != nil {
			return err
		}
		if groupCount == 0 {
			return ErrNotFound
		}

		// Delete group members absent from the desired list, with their
		// characteristic records in lockstep.
		var removedIDs []uint
		if err := tx.Model(&model.Sample{}).
			Where("reception_id = ? AND id NOT IN ?", receptionID, keepIDs).
			Pluck("id", &removedIDs).Error; err != nil {
			return err
		}
		if len(removedIDs) > 0 {
			if err := tx.Where("id IN ?", removedIDs).Delete(&model.Sample{}).Error; err != nil {
				return err
			}
			if err := tx.Where("sample_id IN ?", removedIDs).Delete(&model.CharacteristicSample{}).Error; err != nil {
				return err
			}
		}

		// Shared shipment fields, one statement for the whole group
		shared := map[string]interface{}{
			"company_id":    in.CompanyID,
			"sent_at":       in.SentAt,
			"received_at":   in.ReceivedAt,
			"description":   in.Description,
			"shipping_type": carrier(in.ShippingType, in.CustomShippingType),
		}
		if err := tx.Model(&model.Sample{}).
			Where("reception_id = ? AND id IN ?", receptionID, keepIDs).
			Updates(shared).Error; err != nil {
			return err
		}

		// Per-row fields as parameterized per-row updates
		for i, row := range in.Samples {
			res := tx.Model(&model.Sample{}).
				Where("id = ? AND reception_id = ?", row.ID, receptionID).
				Updates(map[string]interface{}{
					"external_id": row.External,
					"type":        row.Type,
					"category":    row.Category,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &ValidationError{Fields: map[string]string{
					fmt.Sprintf("samples.%d.id", i): "sample does not belong to this reception",
				}}
			}
		}
		return nil
	})
}

// Group returns the non-deleted members of a reception group ordered by id
func (s *ReceptionService) Group(receptionID uint) ([]model.Sample, error) {
	var samples []model.Sample
	err := s.db.Where("reception_id = ?", receptionID).Order("id").Find(&samples).Error
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNotFound
	}
	return samples, nil
}

// Delete soft-deletes one sample and its characteristic record
func (s *ReceptionService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Sample{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("sample_id = ?", id).Delete(&model.CharacteristicSample{}).Error
	})
}

// UpdateStatus sets the workflow status of a sample. Transitions are
// deliberately unguarded; any status 1-5 may be set from any other.
func (s *ReceptionService) UpdateStatus(id uint, status int) error {
	if !model.IsValidStatus(status) {
		return &ValidationError{Fields: map[string]string{"status": "must be between 1 and 5"}}
	}
	res := s.db.Model(&model.Sample{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
