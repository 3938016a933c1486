// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package cluster

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
)

// Cache shares one RemoteCluster per user, host and port between
// submissions. Broken clusters are replaced on the next lookup.
type Cache struct {
	sync.Mutex
	clusters map[string]RemoteCluster
	metrics  *Metrics
}

// NewCache returns an empty cache.
func NewCache(scope tally.Scope) *Cache {
	return &Cache{
		clusters: make(map[string]RemoteCluster),
		metrics:  NewMetrics(scope.SubScope("cluster")),
	}
}

// Get returns the cached cluster for info, or stores the one returned by
// create.
func (c *Cache) Get(info ServerInfo, create func() (RemoteCluster, error)) (RemoteCluster, error) {
	key := info.Key()

	c.Lock()
	defer c.Unlock()

	if rc, ok := c.clusters[key]; ok {
		if rc.Healthy() {
			c.metrics.CacheHit.Inc(1)
			return rc, nil
		}
		log.WithField(common.HostLogField, key).Info("Evicting broken cluster connection")
		c.metrics.CacheEvicted.Inc(1)
		rc.Close()
		delete(c.clusters, key)
	}

	c.metrics.CacheMiss.Inc(1)
	rc, err := create()
	if err != nil {
		return nil, err
	}
	c.clusters[key] = rc
	return rc, nil
}

// Len returns the number of cached clusters.
func (c *Cache) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.clusters)
}

// Close closes every cached cluster.
func (c *Cache) Close() error {
	c.Lock()
	defer c.Unlock()
	var errs *multierror.Error
	for key, rc := range c.clusters {
		if err := rc.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		delete(c.clusters, key)
	}
	return errs.ErrorOrNil()
}
