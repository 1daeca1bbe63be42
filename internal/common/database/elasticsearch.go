// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"time"

	"matchmaking-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used for candidate search.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch builds a client from Addresses, falling back to URL.
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addrs := cfg.Addresses
	if len(addrs) == 0 && cfg.GetURL() != "" {
		addrs = []string{cfg.GetURL()}
	}
	esCfg := elasticsearch.Config{
		Addresses: addrs,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

// Ping checks the cluster with a 5s cap on top of ctx.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// IndexExists reports an error unless index is present on the cluster.
func (c *ElasticsearchClient) IndexExists(ctx context.Context, index string) error {
	if index == "" {
		return fmt.Errorf("elasticsearch index name is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Indices.Exists([]string{index},
		c.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return fmt.Errorf("elasticsearch index %q not found", index)
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch index check error: %s", res.Status())
	}
	return nil
}
