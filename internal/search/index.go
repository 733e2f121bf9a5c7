package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"

	"example.com/backstage/services/doctor/internal/paging"
)

// ElasticIndex is the search index for documents of type M, keyed by the
// record id
type ElasticIndex[M any] struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticIndex creates a search index bound to an index name
func NewElasticIndex[M any](client *elasticsearch.Client, index string) *ElasticIndex[M] {
	return &ElasticIndex[M]{client: client, index: index}
}

// Name returns the index name
func (i *ElasticIndex[M]) Name() string {
	return i.index
}

// Ensure creates the index when missing
func (i *ElasticIndex[M]) Ensure(ctx context.Context) error {
	return EnsureIndex(ctx, i.client, i.index)
}

// Upsert writes doc under id, replacing any previous version
func (i *ElasticIndex[M]) Upsert(ctx context.Context, id int64, doc *M) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(id, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// Delete removes the document with id. A missing document counts as deleted.
func (i *ElasticIndex[M]) Delete(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete", res)
	}
	return nil
}

type searchResponse[M any] struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source M `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a query_string query and returns one page of documents and
// the total number of hits
func (i *ElasticIndex[M]) Search(ctx context.Context, query string, page paging.PageRequest) ([]M, int64, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"from":             page.Offset(),
		"size":             page.Size,
		"track_total_hits": true,
	}
	if len(page.Sort) > 0 {
		sort := make([]map[string]interface{}, 0, len(page.Sort))
		for _, s := range page.Sort {
			sort = append(sort, map[string]interface{}{
				s.Field: map[string]string{"order": string(s.Direction)},
			})
		}
		body["sort"] = sort
	}

	queryJSON, err := json.Marshal(body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, responseError("search", res)
	}

	var result searchResponse[M]
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	docs := make([]M, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, result.Hits.Total.Value, nil
}

// DeleteAll removes every document from the index
func (i *ElasticIndex[M]) DeleteAll(ctx context.Context) error {
	refresh := true
	req := esapi.DeleteByQueryRequest{
		Index:     []string{i.index},
		Body:      bytes.NewReader([]byte(`{"query":{"match_all":{}}}`)),
		Conflicts: "proceed",
		Refresh:   &refresh,
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete by query request")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete by query", res)
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Wrapf(err, "failed to parse Elasticsearch %s error response (status %d)", op, res.StatusCode)
	}
	return errors.Errorf("Elasticsearch %s error (status %d): %v", op, res.StatusCode, e)
}
