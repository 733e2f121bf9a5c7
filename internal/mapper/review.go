package mapper

import "example.com/backstage/services/doctor/internal/models"

// ReviewMapper maps Review and ReviewDTO
type ReviewMapper struct{}

var _ EntityMapper[models.ReviewDTO, models.Review] = ReviewMapper{}

func (ReviewMapper) ToEntity(dto *models.ReviewDTO) *models.Review {
	if dto == nil {
		return nil
	}
	return &models.Review{
		ID:         idValue(dto.ID),
		UserName:   dto.UserName,
		Review:     dto.Review,
		ReviewedOn: dto.ReviewedOn,
	}
}

func (ReviewMapper) ToDTO(entity *models.Review) *models.ReviewDTO {
	if entity == nil {
		return nil
	}
	return &models.ReviewDTO{
		ID:         idOf(entity.ID),
		UserName:   entity.UserName,
		Review:     entity.Review,
		ReviewedOn: entity.ReviewedOn,
	}
}

func (m ReviewMapper) ToDTOs(entities []models.Review) []models.ReviewDTO {
	return mapList(entities, m.ToDTO)
}

func (ReviewMapper) FromID(id *int64) *models.Review {
	if id == nil {
		return nil
	}
	return &models.Review{ID: *id}
}
