// Package esapi is a thin client for the handful of Elasticsearch, Kibana
// and Fleet REST endpoints the orchestrator consults. Responses are read
// with gjson field extraction; no full API surface is modelled.
package esapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/mensylisir/esxm/pkg/config"
	"github.com/mensylisir/esxm/pkg/runner"
)

// Client issues TLS-verified, basic-authenticated GETs against one service
// base URL.
type Client struct {
	baseURL string
	creds   config.Credentials
	http    *http.Client
}

// NewClient builds a client for baseURL. When caCertPath is non-empty the
// file is added to the trust pool; otherwise the system pool verifies the
// server certificate.
func NewClient(baseURL string, creds config.Credentials, caCertPath string) (*Client, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caCertPath != "" {
		pem, err := os.ReadFile(caCertPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CA certificate %s", caCertPath)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates parsed from %s", caCertPath)
		}
		tlsCfg.RootCAs = pool
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
	}, nil
}

// get performs an authenticated GET of path and returns the body for 2xx
// responses.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", path)
	}
	if c.creds.Username != "" {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s%s", c.baseURL, path)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response of %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("GET %s returned %s: %s", path, resp.Status, truncate(body, 200))
	}
	return body, nil
}

// Answering reports whether the service answers HTTP at all. Any verified
// TLS response, including 401 from an unauthenticated probe, counts.
func (c *Client) Answering(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// ClusterHealth is the subset of _cluster/health the orchestrator reads.
type ClusterHealth struct {
	ClusterName string
	Status      string // green, yellow or red
	NodeCount   int64
}

// ClusterHealth queries /_cluster/health.
func (c *Client) ClusterHealth(ctx context.Context) (*ClusterHealth, error) {
	body, err := c.get(ctx, "/_cluster/health")
	if err != nil {
		return nil, err
	}
	return &ClusterHealth{
		ClusterName: gjson.GetBytes(body, "cluster_name").String(),
		Status:      gjson.GetBytes(body, "status").String(),
		NodeCount:   gjson.GetBytes(body, "number_of_nodes").Int(),
	}, nil
}

// NodeInfo is one row of _cat/nodes.
type NodeInfo struct {
	Name   string
	IP     string
	Roles  string
	Master bool
}

// CatNodes queries /_cat/nodes and returns the node descriptors in the
// order the cluster reports them.
func (c *Client) CatNodes(ctx context.Context) ([]NodeInfo, error) {
	body, err := c.get(ctx, "/_cat/nodes?format=json&h=name,ip,node.role,master")
	if err != nil {
		return nil, err
	}
	var nodes []NodeInfo
	gjson.ParseBytes(body).ForEach(func(_, row gjson.Result) bool {
		nodes = append(nodes, NodeInfo{
			Name:   row.Get("name").String(),
			IP:     row.Get("ip").String(),
			Roles:  row.Get("node\\.role").String(),
			Master: row.Get("master").String() == "*",
		})
		return true
	})
	return nodes, nil
}

// HealthAtLeast returns a probe that is ready once the cluster health is at
// or above min ("yellow" accepts yellow and green).
func (c *Client) HealthAtLeast(min string) runner.Probe {
	rank := map[string]int{"red": 0, "yellow": 1, "green": 2}
	return func(ctx context.Context) (bool, error) {
		h, err := c.ClusterHealth(ctx)
		if err != nil {
			return false, err
		}
		return rank[h.Status] >= rank[min], nil
	}
}

// NodeJoined returns a probe that is ready once _cat/nodes lists nodeName.
func (c *Client) NodeJoined(nodeName string) runner.Probe {
	return func(ctx context.Context) (bool, error) {
		nodes, err := c.CatNodes(ctx)
		if err != nil {
			return false, err
		}
		for _, n := range nodes {
			if n.Name == nodeName {
				return true, nil
			}
		}
		return false, nil
	}
}

// KibanaAvailable returns a probe against Kibana's /api/status endpoint.
func (c *Client) KibanaAvailable() runner.Probe {
	return func(ctx context.Context) (bool, error) {
		body, err := c.get(ctx, "/api/status")
		if err != nil {
			return false, err
		}
		return gjson.GetBytes(body, "status.overall.level").String() == "available", nil
	}
}

// FleetHealthy returns a probe against the Fleet server /api/status
// endpoint.
func (c *Client) FleetHealthy() runner.Probe {
	return func(ctx context.Context) (bool, error) {
		body, err := c.get(ctx, "/api/status")
		if err != nil {
			return false, err
		}
		return gjson.GetBytes(body, "status").String() == "HEALTHY", nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
