package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/internal/mirror"
	"example.com/backstage/services/doctor/internal/paging"
)

// resource serves the six REST endpoints of one entity type
type resource[D any, E any] struct {
	server *Server
	path   string
	coord  *mirror.Coordinator[D, E]
	entity string
}

// registerResource mounts /<path>, /<path>/:id and /_search/<path> on group
func registerResource[D any, E any](s *Server, group *gin.RouterGroup, path string, coord *mirror.Coordinator[D, E]) {
	r := &resource[D, E]{
		server: s,
		path:   path,
		coord:  coord,
		entity: coord.Descriptor().EntityName,
	}

	group.POST("/"+path, r.create)
	group.PUT("/"+path, r.update)
	group.GET("/"+path, r.list)
	group.GET("/"+path+"/:id", r.get)
	group.DELETE("/"+path+"/:id", r.delete)
	group.GET("/_search/"+path, r.search)
}

func (r *resource[D, E]) baseURL() string {
	return "/api/" + r.path
}

func (r *resource[D, E]) bind(c *gin.Context) (*D, bool) {
	var dto D
	if err := c.ShouldBindJSON(&dto); err != nil {
		r.server.badRequest(c, r.entity, "Malformed request body: "+err.Error(), keyBodyInvalid)
		return nil, false
	}
	if err := ValidateStruct(&dto); err != nil {
		r.server.badRequest(c, r.entity, describeValidation(err), keyValidation)
		return nil, false
	}
	return &dto, true
}

func (r *resource[D, E]) create(c *gin.Context) {
	dto, ok := r.bind(c)
	if !ok {
		return
	}
	log.Debug().Str("entity", r.entity).Msg("REST request to create")

	result, err := r.coord.Create(c.Request.Context(), dto)
	if err != nil {
		r.server.writeError(c, r.entity, err)
		return
	}

	id := r.idString(result)
	c.Header("Location", fmt.Sprintf("%s/%s", r.baseURL(), id))
	r.server.entityAlert(c, r.entity, "created", id)
	c.JSON(http.StatusCreated, result)
}

func (r *resource[D, E]) update(c *gin.Context) {
	dto, ok := r.bind(c)
	if !ok {
		return
	}
	log.Debug().Str("entity", r.entity).Msg("REST request to update")

	result, err := r.coord.Update(c.Request.Context(), dto)
	if err != nil {
		r.server.writeError(c, r.entity, err)
		return
	}

	r.server.entityAlert(c, r.entity, "updated", r.idString(result))
	c.JSON(http.StatusOK, result)
}

func (r *resource[D, E]) list(c *gin.Context) {
	req, ok := r.pageRequest(c)
	if !ok {
		return
	}

	page, err := r.coord.ListPaged(c.Request.Context(), req)
	if err != nil {
		r.server.writeError(c, r.entity, err)
		return
	}

	setPaginationHeaders(c, r.baseURL(), infoOf(page), "")
	c.JSON(http.StatusOK, page.Content)
}

func (r *resource[D, E]) get(c *gin.Context) {
	id, ok := r.pathID(c)
	if !ok {
		return
	}

	result, err := r.coord.GetByID(c.Request.Context(), id)
	if err != nil {
		r.server.writeError(c, r.entity, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *resource[D, E]) delete(c *gin.Context) {
	id, ok := r.pathID(c)
	if !ok {
		return
	}
	log.Debug().Str("entity", r.entity).Int64("id", id).Msg("REST request to delete")

	if err := r.coord.Delete(c.Request.Context(), id); err != nil {
		r.server.writeError(c, r.entity, err)
		return
	}

	r.server.entityAlert(c, r.entity, "deleted", strconv.FormatInt(id, 10))
	c.Status(http.StatusOK)
}

func (r *resource[D, E]) search(c *gin.Context) {
	query, present := c.GetQuery("query")
	if !present {
		r.server.badRequest(c, r.entity, "Required parameter 'query' is not present", keyQueryMissing)
		return
	}
	req, ok := r.pageRequest(c)
	if !ok {
		return
	}

	page, err := r.coord.Search(c.Request.Context(), query, req)
	if err != nil {
		r.server.writeError(c, r.entity, err)
		return
	}

	setSearchPaginationHeaders(c, "/api/_search/"+r.path, query, infoOf(page))
	c.JSON(http.StatusOK, page.Content)
}

func (r *resource[D, E]) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		r.server.badRequest(c, r.entity, "Invalid id", keyIDInvalid)
		return 0, false
	}
	return id, true
}

// pageRequest reads page, size and sort query parameters
func (r *resource[D, E]) pageRequest(c *gin.Context) (paging.PageRequest, bool) {
	page, err := intQuery(c, "page", 0)
	if err != nil || page < 0 {
		r.server.badRequest(c, r.entity, "Invalid page parameter", keyPageInvalid)
		return paging.PageRequest{}, false
	}
	size, err := intQuery(c, "size", paging.DefaultSize)
	if err != nil || size < 1 {
		r.server.badRequest(c, r.entity, "Invalid size parameter", keyPageInvalid)
		return paging.PageRequest{}, false
	}
	sort, err := paging.ParseSort(c.QueryArray("sort"))
	if err != nil {
		r.server.badRequest(c, r.entity, err.Error(), mirror.KeySortInvalid)
		return paging.PageRequest{}, false
	}
	return paging.Of(page, size, sort...), true
}

func (r *resource[D, E]) idString(dto *D) string {
	if id := r.coord.Descriptor().DTOID(dto); id != nil {
		return strconv.FormatInt(*id, 10)
	}
	return ""
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func infoOf[T any](p paging.Page[T]) pageInfo {
	return pageInfo{
		number:      p.Number,
		size:        p.Size,
		totalPages:  p.TotalPages(),
		total:       p.Total,
		hasNext:     p.HasNext(),
		hasPrevious: p.HasPrevious(),
	}
}
