package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/doctor/internal/models"
)

func TestFromID(t *testing.T) {
	id := int64(42)

	assert.Equal(t, int64(42), ReplyMapper{}.FromID(&id).ID)
	assert.Nil(t, ReplyMapper{}.FromID(nil))

	assert.Equal(t, int64(42), ReviewMapper{}.FromID(&id).ID)
	assert.Nil(t, ReviewMapper{}.FromID(nil))

	assert.Equal(t, int64(42), PaymentSettingsMapper{}.FromID(&id).ID)
	assert.Nil(t, PaymentSettingsMapper{}.FromID(nil))
}

func TestReviewRoundTrip(t *testing.T) {
	id := int64(7)
	dto := &models.ReviewDTO{
		ID:         &id,
		UserName:   "AAAAAAAAAA",
		Review:     "AAAAAAAAAA",
		ReviewedOn: models.NewLocalDate(time.Unix(0, 0)),
	}

	m := ReviewMapper{}
	entity := m.ToEntity(dto)
	require.NotNil(t, entity)
	assert.Equal(t, int64(7), entity.ID)

	back := m.ToDTO(entity)
	require.NotNil(t, back.ID)
	assert.Equal(t, *dto.ID, *back.ID)
	assert.Equal(t, dto.UserName, back.UserName)
	assert.True(t, dto.ReviewedOn.Equal(back.ReviewedOn))
}

func TestNewEntityHasNoID(t *testing.T) {
	m := PaymentSettingsMapper{}

	entity := m.ToEntity(&models.PaymentSettingsDTO{Currency: "USD", Amount: 10})
	assert.Zero(t, entity.ID)
	assert.Nil(t, m.ToDTO(entity).ID)
	assert.Nil(t, m.ToEntity(nil))
	assert.Nil(t, m.ToDTO(nil))
}

func TestToDTOs(t *testing.T) {
	dtos := ReplyMapper{}.ToDTOs([]models.Reply{{ID: 1, Reply: "a"}, {ID: 2, Reply: "b"}})
	require.Len(t, dtos, 2)
	assert.Equal(t, "b", dtos[1].Reply)
	assert.Equal(t, int64(2), *dtos[1].ID)

	assert.Empty(t, ReplyMapper{}.ToDTOs(nil))
}
