package models

// PaymentSettings holds how a doctor collects consultation fees
type PaymentSettings struct {
	ID               int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	IsPaymentEnabled bool    `json:"isPaymentEnabled"`
	Amount           float64 `json:"amount"`
	Currency         string  `gorm:"size:3" json:"currency"`
	PaymentMethod    string  `gorm:"size:64" json:"paymentMethod"`
	IntentCapture    bool    `json:"intentCapture"`
}

// TableName overrides the gorm table name
func (PaymentSettings) TableName() string {
	return "payment_settings"
}

// PaymentSettingsDTO is the API representation of PaymentSettings
type PaymentSettingsDTO struct {
	ID               *int64  `json:"id"`
	IsPaymentEnabled bool    `json:"isPaymentEnabled"`
	Amount           float64 `json:"amount" validate:"gte=0"`
	Currency         string  `json:"currency" validate:"omitempty,len=3,uppercase"`
	PaymentMethod    string  `json:"paymentMethod" validate:"max=64"`
	IntentCapture    bool    `json:"intentCapture"`
}
