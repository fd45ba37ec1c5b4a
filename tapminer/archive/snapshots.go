package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/storges/tapminer/tapminer/economy/state"
)

type Config struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	Endpoint string `toml:"endpoint"`
}

func (c Config) Enabled() bool {
	return c.Bucket != "" && c.Key != "" && c.Secret != ""
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotArchive writes final session snapshots to a Spaces bucket as JSON,
// one object per session under <prefix>/<player>/<unix millis>.json.
type SnapshotArchive struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

func New(ctx context.Context, cfg Config) (*SnapshotArchive, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return newSnapshotArchive(client, cfg), nil
}

func newSnapshotArchive(client objectPutter, cfg Config) *SnapshotArchive {
	return &SnapshotArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}
}

func (a *SnapshotArchive) Archive(ctx context.Context, playerID string, snap state.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := a.objectKey(playerID)
	start := time.Now()
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}

	slog.Debug("Snapshot archived",
		slog.String("type", "sys"),
		slog.String("player_id", playerID),
		slog.String("key", key),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (a *SnapshotArchive) objectKey(playerID string) string {
	name := fmt.Sprintf("%s/%d.json", playerID, a.now().UnixMilli())
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}
