/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redis_db

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 500 * time.Millisecond

// Redis holds a universal client that serves both standalone and clustered deployments.
type Redis struct {
	addresses []string
	client    redis.UniversalClient
}

// ParseRedisURL accepts docker-style host:port addresses as well as redis:// and rediss:// URLs.
// Managed instances on redis.cache.windows.net get TLS even when the URL omits the scheme.
func ParseRedisURL(rawURL string, skipTLSVerify bool) (*redis.Options, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	if !strings.Contains(rawURL, "//") && !strings.Contains(rawURL, "@") {
		opts := &redis.Options{Addr: rawURL}
		if strings.Contains(rawURL, "redis.cache.windows.net") {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		applyTLSSkip(opts, skipTLSVerify)
		return opts, nil
	}

	// redis://secret@host:port carries a bare password without the leading colon
	if strings.HasPrefix(rawURL, "redis://") {
		rest := strings.TrimPrefix(rawURL, "redis://")
		if auth, host, ok := strings.Cut(rest, "@"); ok && !strings.Contains(auth, ":") {
			rawURL = "redis://:" + auth + "@" + host
		}
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	applyTLSSkip(opts, skipTLSVerify)
	return opts, nil
}

func applyTLSSkip(opts *redis.Options, skipTLSVerify bool) {
	if opts.TLSConfig != nil && skipTLSVerify {
		opts.TLSConfig.InsecureSkipVerify = true
	}
}

// NewRedisClient connects to a single instance or, when given several addresses, a cluster.
// The connection is verified with a ping before returning.
func NewRedisClient(addresses []string, skipTLSVerify bool) (*Redis, error) {
	if len(addresses) == 0 {
		return nil, errors.New("redis addresses list cannot be empty")
	}

	var client redis.UniversalClient
	if len(addresses) == 1 {
		opts, err := ParseRedisURL(addresses[0], skipTLSVerify)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opts)
	} else {
		clusterOpts := &redis.UniversalOptions{}
		for _, addr := range addresses {
			opts, err := ParseRedisURL(addr, skipTLSVerify)
			if err != nil {
				return nil, err
			}
			clusterOpts.Addrs = append(clusterOpts.Addrs, opts.Addr)
			if clusterOpts.Password == "" {
				clusterOpts.Password = opts.Password
			}
			if opts.TLSConfig != nil && clusterOpts.TLSConfig == nil {
				clusterOpts.TLSConfig = &tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: skipTLSVerify,
				}
			}
		}
		client = redis.NewUniversalClient(clusterOpts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{addresses: addresses, client: client}, nil
}

// Client returns the universal client for direct commands.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}
