package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// TimerLister reads a user's timers.
type TimerLister interface {
	ListAll(ctx context.Context, userID string) ([]models.Timer, error)
}

// Export describes an uploaded timer history archive.
type Export struct {
	Key       string
	URL       string
	ExpiresAt time.Time
	Timers    int
	Size      int
}

// ExportDocument is the JSON document stored (zstd-compressed) by Export.
type ExportDocument struct {
	UserID     string       `json:"user_id"`
	ExportedAt int64        `json:"exported_at"`
	Timers     []wire.Timer `json:"timers"`
}

// ExportService uploads a user's timer history to S3-compatible storage
// and hands out a temporary download link.
type ExportService struct {
	timers TimerLister
	config *config.Config
	log    logging.Logger
	now    func() time.Time
}

func NewExportService(timers TimerLister, cfg *config.Config, log logging.Logger) *ExportService {
	return &ExportService{
		timers: timers,
		config: cfg,
		log:    log.With("module", "export"),
		now:    time.Now,
	}
}

// Enabled reports whether an export bucket is configured.
func (s *ExportService) Enabled() bool {
	return s.config.S3Bucket != ""
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.config.S3Region)}
	if s.config.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			// MinIO and friends serve buckets under the path
			o.UsePathStyle = true
		}
	}), nil
}

// ObjectKey is the content address of a compressed export.
func ObjectKey(userID string, compressed []byte) string {
	sum := blake3.Sum256(compressed)
	return fmt.Sprintf("exports/%s/%s.json.zst", userID, hex.EncodeToString(sum[:]))
}

// encodeExport renders the document as JSON and compresses it with zstd.
func encodeExport(doc *ExportDocument) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// DecodeExport reverses encodeExport.
func DecodeExport(compressed []byte) (*ExportDocument, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, err
	}
	doc := &ExportDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Export uploads the user's full timer history and returns a presigned GET
// link valid for the configured ExportLinkTTL. Without a bucket it returns
// common.ErrorNotConfigured.
func (s *ExportService) Export(ctx context.Context, userID string) (*Export, error) {
	if !s.Enabled() {
		return nil, common.ErrorNotConfigured
	}

	timers, err := s.timers.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing timers: %w", err)
	}

	now := s.now()
	body, err := encodeExport(&ExportDocument{
		UserID:     userID,
		ExportedAt: now.UnixMilli(),
		Timers:     models.WireTimers(timers),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding export: %v", common.ErrorInternal, err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error configuring object storage: %w", err)
	}

	bucket := s.config.S3Bucket
	key := ObjectKey(userID, body)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:          &bucket,
		Key:             &key,
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("zstd"),
	})
	if err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.ExportLinkTTL))
	if err != nil {
		return nil, fmt.Errorf("error presigning export: %w", err)
	}

	s.log.Info(ctx, "timers exported", "user_id", userID, "key", key, "timers", len(timers), "bytes", len(body))

	return &Export{
		Key:       key,
		URL:       req.URL,
		ExpiresAt: now.Add(s.config.ExportLinkTTL),
		Timers:    len(timers),
		Size:      len(body),
	}, nil
}
