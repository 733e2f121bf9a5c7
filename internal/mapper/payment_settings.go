package mapper

import "example.com/backstage/services/doctor/internal/models"

// PaymentSettingsMapper maps PaymentSettings and PaymentSettingsDTO
type PaymentSettingsMapper struct{}

var _ EntityMapper[models.PaymentSettingsDTO, models.PaymentSettings] = PaymentSettingsMapper{}

func (PaymentSettingsMapper) ToEntity(dto *models.PaymentSettingsDTO) *models.PaymentSettings {
	if dto == nil {
		return nil
	}
	return &models.PaymentSettings{
		ID:               idValue(dto.ID),
		IsPaymentEnabled: dto.IsPaymentEnabled,
		Amount:           dto.Amount,
		Currency:         dto.Currency,
		PaymentMethod:    dto.PaymentMethod,
		IntentCapture:    dto.IntentCapture,
	}
}

func (PaymentSettingsMapper) ToDTO(entity *models.PaymentSettings) *models.PaymentSettingsDTO {
	if entity == nil {
		return nil
	}
	return &models.PaymentSettingsDTO{
		ID:               idOf(entity.ID),
		IsPaymentEnabled: entity.IsPaymentEnabled,
		Amount:           entity.Amount,
		Currency:         entity.Currency,
		PaymentMethod:    entity.PaymentMethod,
		IntentCapture:    entity.IntentCapture,
	}
}

func (m PaymentSettingsMapper) ToDTOs(entities []models.PaymentSettings) []models.PaymentSettingsDTO {
	return mapList(entities, m.ToDTO)
}

func (PaymentSettingsMapper) FromID(id *int64) *models.PaymentSettings {
	if id == nil {
		return nil
	}
	return &models.PaymentSettings{ID: *id}
}
