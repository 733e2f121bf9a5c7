package models

// Review is a patient review of a doctor
type Review struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserName   string    `gorm:"size:255" json:"userName"`
	Review     string    `gorm:"type:text" json:"review"`
	ReviewedOn LocalDate `json:"reviewedOn"`
}

// TableName overrides the gorm table name
func (Review) TableName() string {
	return "review"
}

// ReviewDTO is the API representation of a Review
type ReviewDTO struct {
	ID         *int64    `json:"id"`
	UserName   string    `json:"userName" validate:"max=255"`
	Review     string    `json:"review" validate:"max=4096"`
	ReviewedOn LocalDate `json:"reviewedOn"`
}
