package models

// Reply is a doctor's reply to a patient review
type Reply struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Reply string `gorm:"type:text" json:"reply"`
}

// TableName overrides the gorm table name
func (Reply) TableName() string {
	return "reply"
}

// ReplyDTO is the API representation of a Reply
type ReplyDTO struct {
	ID    *int64 `json:"id"`
	Reply string `json:"reply" validate:"max=4096"`
}
