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

package handler

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

const (
	_bucketProperty   = "bucket"
	_prefixProperty   = "prefix"
	_regionProperty   = "region"
	_endpointProperty = "endpoint"
)

// s3Upload uploads the downloaded outputs of a task to an S3 bucket and
// points the output parameters at the objects. The cloud context of the
// execution is used when the task ran on a cloud host; otherwise one is
// built for the gateway from the handler properties.
type s3Upload struct {
	clouds   CloudContextSource
	recorder core.ErrorRecorder
	metrics  *Metrics
	account  model.CloudHost
	prefix   string
}

func (h *s3Upload) Initialize(props map[string]string) error {
	h.account = model.CloudHost{
		Region:   props[_regionProperty],
		Endpoint: props[_endpointProperty],
		Bucket:   props[_bucketProperty],
	}
	h.prefix = props[_prefixProperty]
	return nil
}

func (h *s3Upload) cloudContext(
	ctx context.Context,
	jec *core.ExecutionContext) (*security.CloudContext, error) {
	if cc, ok := security.CloudContextFrom(jec); ok {
		return cc, nil
	}
	if h.clouds == nil {
		return nil, errors.New("execution context has no cloud context")
	}
	return h.clouds.CloudContext(ctx, jec.GatewayID, &h.account)
}

func (h *s3Upload) Invoke(ctx context.Context, jec *core.ExecutionContext) error {
	cc, err := h.cloudContext(ctx, jec)
	if err != nil {
		return transportFailure(ctx, h.recorder, jec, "s3 upload",
			model.ErrorCategorySystemFailure, model.CorrectiveActionContactSupport,
			err, "Cloud credentials are not set properly")
	}
	bucket := h.account.Bucket
	if bucket == "" {
		bucket = cc.Bucket
	}
	if bucket == "" {
		return transportFailure(ctx, h.recorder, jec, "s3 upload",
			model.ErrorCategorySystemFailure, model.CorrectiveActionContactSupport,
			errors.New("no bucket configured"), "No bucket is configured for outputs")
	}

	client := s3.NewFromConfig(cc.Config, func(o *s3.Options) {
		o.UsePathStyle = cc.Endpoint != "" || h.account.Endpoint != ""
	})

	for _, p := range jec.Outputs() {
		switch p.Type {
		case model.ParameterTypeURI, model.ParameterTypeStdout, model.ParameterTypeStderr:
		default:
			continue
		}
		if p.Value == "" || !filepath.IsAbs(p.Value) {
			continue
		}
		key := path.Join(h.prefix, jec.ExperimentID, jec.TaskID, filepath.Base(p.Value))
		if err := upload(ctx, client, bucket, key, p.Value); err != nil {
			h.metrics.TransferFail.Inc(1)
			return transportFailure(ctx, h.recorder, jec, "upload "+p.Value,
				model.ErrorCategoryFileSystemFailure, model.CorrectiveActionRetrySubmission,
				err, "Could not upload output "+p.Name)
		}
		h.metrics.ObjectsUploaded.Inc(1)
		p.Value = fmt.Sprintf("s3://%s/%s", bucket, key)
		jec.SetOutput(p)

		log.WithFields(log.Fields{
			common.TaskIDLogField: jec.TaskID,
			"bucket":              bucket,
			"key":                 key,
		}).Debug("Output uploaded")
	}
	return nil
}

func upload(ctx context.Context, client *s3.Client, bucket, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}
