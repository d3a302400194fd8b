package service

import (
	"time"

	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

// CharacteristicService updates the per-type measurement records of
// samples. Some characteristic-form attributes physically live on the
// sample row (internal id, analysis and collection dates); those writes
// happen in the same transaction as the characteristic update.
type CharacteristicService struct {
	db *gorm.DB
}

// NewCharacteristicService creates a characteristic service on the given database
func NewCharacteristicService(db *gorm.DB) *CharacteristicService {
	return &CharacteristicService{db: db}
}

// CharacteristicUpdate is a partial field set; nil fields are untouched.
// Which measurement fields are accepted depends on the sample type.
type CharacteristicUpdate struct {
	InternalID *string `json:"internal_id"`

	// orina / saliva
	Ph       *string `json:"ph"`
	Densidad *string `json:"densidad"`
	Volumen  *string `json:"volumen"`

	// pelo
	Largo       *string `json:"largo"`
	Color       *string `json:"color"`
	TipoMuestra *string `json:"tipo_muestra"`

	// shared
	Screening        *string    `json:"screening"`
	Confirmacion     *string    `json:"confirmacion"`
	Observaciones    *string    `json:"observaciones"`
	CantidadDroga    *int       `json:"cantidad_droga"`
	EncargadoIngreso *string    `json:"encargado_ingreso"`
	FechaIngreso     *time.Time `json:"fecha_ingreso"`
	SampleTakenAt    *time.Time `json:"sample_taken_at"`
}

// validateForType rejects measurement fields that do not apply to the
// sample type: orina/saliva carry ph/densidad/volumen, pelo carries
// largo/color/tipo_muestra, suero carries shared fields only.
func (u *CharacteristicUpdate) validateForType(sampleType string) error {
	v := newValidator()
	urineLike := sampleType == model.TypeOrina || sampleType == model.TypeSaliva
	hair := sampleType == model.TypePelo

	if !urineLike {
		if u.Ph != nil {
			v.add("ph", "not applicable for type "+sampleType)
		}
		if u.Densidad != nil {
			v.add("densidad", "not applicable for type "+sampleType)
		}
		if u.Volumen != nil {
			v.add("volumen", "not applicable for type "+sampleType)
		}
	}
	if !hair {
		if u.Largo != nil {
			v.add("largo", "not applicable for type "+sampleType)
		}
		if u.Color != nil {
			v.add("color", "not applicable for type "+sampleType)
		}
		if u.TipoMuestra != nil {
			v.add("tipo_muestra", "not applicable for type "+sampleType)
		}
	}
	return v.err()
}

// Update applies a partial characteristic update. internal_id is
// redirected to the parent sample, fecha_ingreso additionally propagates
// to the sample's analyzed_at and sample_taken_at moves to the sample.
// Both rows are written in one transaction.
func (s *CharacteristicService) Update(id uint, u CharacteristicUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var characteristic model.CharacteristicSample
		if err := tx.First(&characteristic, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		var sample model.Sample
		if err := tx.First(&sample, characteristic.SampleID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}

		if err := u.validateForType(sample.Type); err != nil {
			return err
		}

		sampleUpdates := map[string]interface{}{}
		if u.InternalID != nil {
			sampleUpdates["internal_id"] = *u.InternalID
		}
		if u.FechaIngreso != nil {
			sampleUpdates["analyzed_at"] = *u.FechaIngreso
		}
		if u.SampleTakenAt != nil {
			sampleUpdates["sample_taken_at"] = *u.SampleTakenAt
		}

		charUpdates := map[string]interface{}{}
		setString := func(column string, value *string) {
			if value != nil {
				charUpdates[column] = *value
			}
		}
		setString("ph", u.Ph)
		setString("densidad", u.Densidad)
		setString("volumen", u.Volumen)
		setString("largo", u.Largo)
		setString("color", u.Color)
		setString("tipo_muestra", u.TipoMuestra)
		setString("screening", u.Screening)
		setString("confirmacion", u.Confirmacion)
		setString("observaciones", u.Observaciones)
		setString("encargado_ingreso", u.EncargadoIngreso)
		if u.CantidadDroga != nil {
			charUpdates["cantidad_droga"] = *u.CantidadDroga
		}
		if u.FechaIngreso != nil {
			charUpdates["fecha_ingreso"] = *u.FechaIngreso
		}

		if len(sampleUpdates) > 0 {
			if err := tx.Model(&model.Sample{}).Where("id = ?", sample.ID).Updates(sampleUpdates).Error; err != nil {
				return err
			}
		}
		if len(charUpdates) > 0 {
			if err := tx.Model(&model.CharacteristicSample{}).Where("id = ?", id).Updates(charUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ResultsUpdate carries lab result fields only. ELISA and
// inmunocromatoplacas results exist for hair samples alone.
type ResultsUpdate struct {
	ResultGcms   *string `json:"result_gcms"`
	ResultCobas  *string `json:"result_cobas"`
	ResultElisa  *string `json:"result_elisa"`
	ResultInmuno *string `json:"result_inmuno"`
}

// UpdateResults applies a pure characteristic-table update of lab result
// fields; no cross-entity effects.
func (s *CharacteristicService) UpdateResults(id uint, u ResultsUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var characteristic model.CharacteristicSample
		if err := tx.First(&characteristic, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		var sample model.Sample
		if err := tx.First(&sample, characteristic.SampleID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}

		if sample.Type != model.TypePelo {
			v := newValidator()
			if u.ResultElisa != nil {
				v.add("result_elisa", "only applicable for type pelo")
			}
			if u.ResultInmuno != nil {
				v.add("result_inmuno", "only applicable for type pelo")
			}
			if err := v.err(); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if u.ResultGcms != nil {
			updates["result_gcms"] = *u.ResultGcms
		}
		if u.ResultCobas != nil {
			updates["result_cobas"] = *u.ResultCobas
		}
		if u.ResultElisa != nil {
			updates["result_elisa"] = *u.ResultElisa
		}
		if u.ResultInmuno != nil {
			updates["result_inmuno"] = *u.ResultInmuno
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model.CharacteristicSample{}).Where("id = ?", id).Updates(updates).Error
	})
}
