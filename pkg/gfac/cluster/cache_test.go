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

package cluster_test

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster/mocks"
)

type CacheTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	cache *cluster.Cache
	info  cluster.ServerInfo
}

func (suite *CacheTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.cache = cluster.NewCache(tally.NoopScope)
	suite.info = cluster.ServerInfo{UserName: "gw", Host: "login", Port: 22}
}

func (suite *CacheTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func TestCache(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) TestReuseHealthy() {
	rc := mocks.NewMockRemoteCluster(suite.ctrl)
	rc.EXPECT().Healthy().Return(true)

	created := 0
	create := func() (cluster.RemoteCluster, error) {
		created++
		return rc, nil
	}
	first, err := suite.cache.Get(suite.info, create)
	suite.NoError(err)
	second, err := suite.cache.Get(suite.info, create)
	suite.NoError(err)
	suite.Equal(first, second)
	suite.Equal(1, created)
	suite.Equal(1, suite.cache.Len())
}

func (suite *CacheTestSuite) TestReplaceBroken() {
	broken := mocks.NewMockRemoteCluster(suite.ctrl)
	fresh := mocks.NewMockRemoteCluster(suite.ctrl)
	gomock.InOrder(
		broken.EXPECT().Healthy().Return(false),
		broken.EXPECT().Close().Return(nil),
	)

	_, err := suite.cache.Get(suite.info, func() (cluster.RemoteCluster, error) {
		return broken, nil
	})
	suite.NoError(err)
	rc, err := suite.cache.Get(suite.info, func() (cluster.RemoteCluster, error) {
		return fresh, nil
	})
	suite.NoError(err)
	suite.Equal(fresh, rc)
}

func (suite *CacheTestSuite) TestCreateError() {
	_, err := suite.cache.Get(suite.info, func() (cluster.RemoteCluster, error) {
		return nil, errors.New("connection refused")
	})
	suite.Error(err)
	suite.Equal(0, suite.cache.Len())
}

func (suite *CacheTestSuite) TestClose() {
	rc := mocks.NewMockRemoteCluster(suite.ctrl)
	rc.EXPECT().Close().Return(errors.New("already closed"))
	_, err := suite.cache.Get(suite.info, func() (cluster.RemoteCluster, error) {
		return rc, nil
	})
	suite.NoError(err)
	suite.Error(suite.cache.Close())
	suite.Equal(0, suite.cache.Len())
}
