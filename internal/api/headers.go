package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Header names, prefixed with the application name
func (s *Server) alertHeader() string  { return "X-" + s.appName + "-alert" }
func (s *Server) errorHeader() string  { return "X-" + s.appName + "-error" }
func (s *Server) paramsHeader() string { return "X-" + s.appName + "-params" }

// entityAlert sets the success alert for action on entityName
func (s *Server) entityAlert(c *gin.Context, entityName, action, param string) {
	c.Header(s.alertHeader(), fmt.Sprintf("%s.%s.%s", s.appName, entityName, action))
	c.Header(s.paramsHeader(), param)
}

// failureAlert sets the error alert for entityName
func (s *Server) failureAlert(c *gin.Context, entityName, key string) {
	c.Header(s.errorHeader(), "error."+key)
	c.Header(s.paramsHeader(), entityName)
}

// pageInfo is the subset of a page needed for headers
type pageInfo struct {
	number      int
	size        int
	totalPages  int
	total       int64
	hasNext     bool
	hasPrevious bool
}

// setPaginationHeaders sets X-Total-Count and an RFC 5988 Link header with
// next, prev, last and first relations. extra is appended to every link.
func setPaginationHeaders(c *gin.Context, baseURL string, p pageInfo, extra string) {
	c.Header("X-Total-Count", strconv.FormatInt(p.total, 10))

	link := func(page int, rel string) string {
		return fmt.Sprintf(`<%s?page=%d&size=%d%s>; rel="%s"`, baseURL, page, p.size, extra, rel)
	}

	var links []string
	if p.hasNext {
		links = append(links, link(p.number+1, "next"))
	}
	if p.hasPrevious {
		links = append(links, link(p.number-1, "prev"))
	}
	lastPage := 0
	if p.totalPages > 0 {
		lastPage = p.totalPages - 1
	}
	links = append(links, link(lastPage, "last"), link(0, "first"))

	c.Header("Link", strings.Join(links, ","))
}

// setSearchPaginationHeaders is setPaginationHeaders with the query carried
// in every link
func setSearchPaginationHeaders(c *gin.Context, baseURL, query string, p pageInfo) {
	setPaginationHeaders(c, baseURL, p, "&query="+url.QueryEscape(query))
}
