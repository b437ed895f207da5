// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 lets interaction files and chunks be read straight from S3. It
// registers the "s3" scheme with tdk.Resolve, so "s3://bucket/key" names one
// object and "s3://bucket/prefix/" every object under prefix.
package s3

import (
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/globi-tools/tdk"
	"github.com/pkg/errors"
)

// DefaultRegion is used when AWS_REGION is not set.
const DefaultRegion = "us-east-1"

func init() {
	tdk.RegisterScheme("s3", func(location string) ([]tdk.OpenStringer, error) {
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = DefaultRegion
		}
		svc, err := NewService(region)
		if err != nil {
			return nil, err
		}
		return Resolve(svc, location)
	})
}

// NewService returns an S3 client for region using the default credential
// chain.
func NewService(region string) (s3iface.S3API, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	return s3.New(sess), nil
}

// ParseURL splits "s3://bucket/key" into bucket and key.
func ParseURL(location string) (bucket, key string, err error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", "", errors.Errorf("'%s' is not an s3 URL", location)
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", errors.Errorf("no bucket in '%s'", location)
	}
	if len(parts) == 2 {
		key = parts[1]
	}
	return parts[0], key, nil
}

// Object is a tdk.OpenStringer for one S3 object.
type Object struct {
	svc    s3iface.S3API
	Bucket string
	Key    string
}

// NewObject returns an Object reading bucket/key through svc.
func NewObject(svc s3iface.S3API, bucket, key string) *Object {
	return &Object{svc: svc, Bucket: bucket, Key: key}
}

// Open implements tdk.Opener.
func (o *Object) Open() (io.ReadCloser, error) {
	result, err := o.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", o)
	}
	return result.Body, nil
}

func (o *Object) String() string {
	return "s3://" + o.Bucket + "/" + o.Key
}

// Resolve turns an s3 URL into Objects. A key ending in "/" (or an empty key)
// is treated as a prefix and expands to the CSV objects below it, ordered by
// chunk number; any other key names a single object.
func Resolve(svc s3iface.S3API, location string) ([]tdk.OpenStringer, error) {
	bucket, key, err := ParseURL(location)
	if err != nil {
		return nil, err
	}
	if key != "" && !strings.HasSuffix(key, "/") {
		return []tdk.OpenStringer{NewObject(svc, bucket, key)}, nil
	}
	keys := make([]string, 0)
	err = svc.ListObjectsPages(&s3.ListObjectsInput{Bucket: aws.String(bucket), Prefix: aws.String(key)},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, obj := range page.Contents {
				if k := aws.StringValue(obj.Key); strings.HasSuffix(k, ".csv") {
					keys = append(keys, k)
				}
			}
			return true
		})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	tdk.SortChunkNames(keys)
	ret := make([]tdk.OpenStringer, len(keys))
	for i, k := range keys {
		ret[i] = NewObject(svc, bucket, k)
	}
	return ret, nil
}
