// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

// Archiver stores finished matches outside the data directory.
type Archiver interface {
	Archive(ctx context.Context, m *Match) error
}

// ArchivedMatch is the document written for a finished match.
type ArchivedMatch struct {
	ID         string               `json:"id"`
	Date       string               `json:"date,omitempty"`
	Location   string               `json:"location,omitempty"`
	Event      string               `json:"event,omitempty"`
	Away       Side                 `json:"away"`
	Home       Side                 `json:"home"`
	FinalState scoring.GameState    `json:"finalState"`
	Plays      []scoring.PlayRecord `json:"plays"`
	FinishedAt int64                `json:"finishedAt"`
}

// objectPutter is the part of the S3 client used by S3Archiver.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes finished matches to an S3 compatible bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// S3ArchiverConfig holds configuration for S3Archiver.
type S3ArchiverConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (R2, MinIO, ...)
	Prefix   string // Optional key prefix

	// Static credentials. The default AWS credential chain is used when
	// AccessKeyID is empty.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Archiver creates an S3Archiver.
func NewS3Archiver(ctx context.Context, cfg S3ArchiverConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *S3Archiver) key(matchId string) string {
	return a.prefix + "matches/" + url.PathEscape(matchId) + ".json"
}

// Archive uploads the play history and final state of a finished match.
func (a *S3Archiver) Archive(ctx context.Context, m *Match) error {
	if m.Status != StatusFinished {
		return fmt.Errorf("match %s is %s, not %s", m.ID, m.Status, StatusFinished)
	}
	data, err := json.Marshal(ArchivedMatch{
		ID:         m.ID,
		Date:       m.Date,
		Location:   m.Location,
		Event:      m.Event,
		Away:       m.Away,
		Home:       m.Home,
		FinalState: m.State,
		Plays:      m.Plays,
		FinishedAt: m.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	key := a.key(m.ID)
	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("s3 put failed for %s: %w", key, err)
	}
	log.Printf("Match %s: archived to s3://%s/%s", m.ID, a.bucket, key)
	return nil
}
