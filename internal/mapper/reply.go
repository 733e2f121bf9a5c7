package mapper

import "example.com/backstage/services/doctor/internal/models"

// ReplyMapper maps Reply and ReplyDTO
type ReplyMapper struct{}

var _ EntityMapper[models.ReplyDTO, models.Reply] = ReplyMapper{}

func (ReplyMapper) ToEntity(dto *models.ReplyDTO) *models.Reply {
	if dto == nil {
		return nil
	}
	return &models.Reply{
		ID:    idValue(dto.ID),
		Reply: dto.Reply,
	}
}

func (ReplyMapper) ToDTO(entity *models.Reply) *models.ReplyDTO {
	if entity == nil {
		return nil
	}
	return &models.ReplyDTO{
		ID:    idOf(entity.ID),
		Reply: entity.Reply,
	}
}

func (m ReplyMapper) ToDTOs(entities []models.Reply) []models.ReplyDTO {
	return mapList(entities, m.ToDTO)
}

func (ReplyMapper) FromID(id *int64) *models.Reply {
	if id == nil {
		return nil
	}
	return &models.Reply{ID: *id}
}
