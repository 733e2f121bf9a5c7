package registry

import (
	"example.com/backstage/services/doctor/internal/mapper"
	"example.com/backstage/services/doctor/internal/mirror"
	"example.com/backstage/services/doctor/internal/models"
)

// Entity names used for index names, cache keys and dead letters
const (
	ReplyName           = "reply"
	ReviewName          = "review"
	PaymentSettingsName = "payment-settings"
)

// ReplyDescriptor describes Reply records
func ReplyDescriptor() mirror.Descriptor[models.ReplyDTO, models.Reply] {
	return mirror.Descriptor[models.ReplyDTO, models.Reply]{
		Name:       ReplyName,
		EntityName: "doctorReply",
		Label:      "reply",
		SortFields: map[string]string{
			"reply": "reply",
		},
		SearchSortFields: map[string]string{
			"reply": "reply.keyword",
		},
		Mapper: mapper.ReplyMapper{},
		ID:     func(e *models.Reply) int64 { return e.ID },
		DTOID:  func(d *models.ReplyDTO) *int64 { return d.ID },
	}
}

// ReviewDescriptor describes Review records
func ReviewDescriptor() mirror.Descriptor[models.ReviewDTO, models.Review] {
	return mirror.Descriptor[models.ReviewDTO, models.Review]{
		Name:       ReviewName,
		EntityName: "doctorReview",
		Label:      "review",
		SortFields: map[string]string{
			"userName":   "user_name",
			"review":     "review",
			"reviewedOn": "reviewed_on",
		},
		SearchSortFields: map[string]string{
			"userName":   "userName.keyword",
			"review":     "review.keyword",
			"reviewedOn": "reviewedOn",
		},
		Mapper: mapper.ReviewMapper{},
		ID:     func(e *models.Review) int64 { return e.ID },
		DTOID:  func(d *models.ReviewDTO) *int64 { return d.ID },
	}
}

// PaymentSettingsDescriptor describes PaymentSettings records
func PaymentSettingsDescriptor() mirror.Descriptor[models.PaymentSettingsDTO, models.PaymentSettings] {
	return mirror.Descriptor[models.PaymentSettingsDTO, models.PaymentSettings]{
		Name:       PaymentSettingsName,
		EntityName: "doctorPaymentSettings",
		Label:      "paymentSettings",
		SortFields: map[string]string{
			"isPaymentEnabled": "is_payment_enabled",
			"amount":           "amount",
			"currency":         "currency",
			"paymentMethod":    "payment_method",
			"intentCapture":    "intent_capture",
		},
		SearchSortFields: map[string]string{
			"isPaymentEnabled": "isPaymentEnabled",
			"amount":           "amount",
			"currency":         "currency.keyword",
			"paymentMethod":    "paymentMethod.keyword",
			"intentCapture":    "intentCapture",
		},
		Mapper: mapper.PaymentSettingsMapper{},
		ID:     func(e *models.PaymentSettings) int64 { return e.ID },
		DTOID:  func(d *models.PaymentSettingsDTO) *int64 { return d.ID },
	}
}
