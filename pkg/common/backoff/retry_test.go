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

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

var (
	errTest      = errors.New("version conflict")
	errPermanent = errors.New("node missing")
)

type RetryTestSuite struct {
	suite.Suite
}

func TestRetryTestSuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func (s *RetryTestSuite) TestRetrySuccess() {
	i := 0
	op := func() error {
		i++
		if i == 5 {
			return nil
		}
		return errTest
	}
	err := Retry(context.Background(), op, NewRetryPolicy(5, time.Millisecond), nil)
	s.NoError(err)
	s.Equal(5, i)
}

func (s *RetryTestSuite) TestRetryFailed() {
	i := 0
	op := func() error {
		i++
		if i == 5 {
			return nil
		}
		return errTest
	}
	err := Retry(context.Background(), op, NewRetryPolicy(4, time.Millisecond), nil)
	s.Equal(errTest, err)
	s.Equal(4, i)
}

func (s *RetryTestSuite) TestRetryStopsOnPermanentError() {
	i := 0
	op := func() error {
		i++
		return errPermanent
	}
	err := Retry(context.Background(), op, NewRetryPolicy(10, time.Millisecond),
		func(err error) bool { return err == errTest })
	s.Equal(errPermanent, err)
	s.Equal(1, i)
}

func (s *RetryTestSuite) TestRetryStopsOnContextDone() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	i := 0
	err := Retry(ctx, func() error {
		i++
		return errTest
	}, NewRetryPolicy(10, time.Hour), nil)
	s.Equal(errTest, err)
	s.Equal(1, i)
}

func (s *RetryTestSuite) TestExponentialPolicy() {
	p := NewExponentialPolicy(5, 10*time.Millisecond, 35*time.Millisecond)
	s.Equal(10*time.Millisecond, p.CalculateNextDelay(1))
	s.Equal(20*time.Millisecond, p.CalculateNextDelay(2))
	s.Equal(35*time.Millisecond, p.CalculateNextDelay(3))
	s.Equal(done, p.CalculateNextDelay(5))
}
