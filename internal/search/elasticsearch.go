package search

import (
	"context"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/config"
)

// NewElasticClient creates an Elasticsearch client and checks the connection
func NewElasticClient(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	if err := Ping(context.Background(), client); err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.URL).Msg("Successfully connected to Elasticsearch")
	return client, nil
}

// Ping calls the cluster info endpoint
func Ping(ctx context.Context, client *elasticsearch.Client) error {
	res, err := esapi.InfoRequest{}.Do(ctx, client)
	if err != nil {
		return errors.Wrap(err, "failed to connect to Elasticsearch")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("Elasticsearch returned error: %s", res.String())
	}
	return nil
}

// EnsureIndex creates index when it does not exist yet
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, index string) error {
	exists, err := indexExists(ctx, client, index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	log.Info().Str("index", index).Msg("Creating index")
	return createIndex(ctx, client, index)
}

func indexExists(ctx context.Context, client *elasticsearch.Client, index string) (bool, error) {
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, client)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check if index %s exists", index)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, errors.Errorf("unexpected status checking index %s: %s", index, res.Status())
	}
}

func createIndex(ctx context.Context, client *elasticsearch.Client, index string) error {
	res, err := esapi.IndicesCreateRequest{Index: index}.Do(ctx, client)
	if err != nil {
		return errors.Wrapf(err, "failed to create index %s", index)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("failed to create index %s: %s", index, res.String())
	}
	return nil
}
