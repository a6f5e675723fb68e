package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/awscfg"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/category"
)

// SnapshotEntry is one reference clause of a corpus snapshot file. The
// embedding is optional and computed at load time when absent.
type SnapshotEntry struct {
	ID           string    `json:"id,omitempty"`
	Text         string    `json:"clause_text"`
	Category     string    `json:"clause_type"`
	DocumentType string    `json:"document_type,omitempty"`
	Source       string    `json:"source_contract,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// Embedder is satisfied by *embedding.Generator.
type Embedder interface {
	Embed(ctx context.Context, text string) models.Embedding
}

// S3Getter is the subset of the S3 client used to fetch snapshots.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func NewS3Client(ctx context.Context, settings awscfg.Settings) (*s3.Client, error) {
	awsConfig, err := awscfg.Load(ctx, settings)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsConfig), nil
}

func DecodeSnapshot(r io.Reader) ([]SnapshotEntry, error) {
	var entries []SnapshotEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return entries, nil
}

func ReadSnapshotFile(path string) ([]SnapshotEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

func ReadSnapshotS3(ctx context.Context, client S3Getter, bucket, key string) ([]SnapshotEntry, error) {
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot s3://%s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()
	return DecodeSnapshot(result.Body)
}

// SnapshotID derives a stable id for an entry that has none.
func SnapshotID(c models.Category, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(c)+"\x00"+text)).String()
}

// LoadSnapshot resolves entries into references and adds them to sink. Labels
// go through mapper; entries with blank text or whose embedding cannot be
// produced are skipped. It returns the number of references added.
func LoadSnapshot(ctx context.Context, sink Sink, entries []SnapshotEntry, mapper *category.Mapper, embedder Embedder, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mapper == nil {
		mapper = category.Default()
	}

	refs := make([]Reference, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			logger.Warn("skipping snapshot entry without text", zap.Int("index", i))
			continue
		}

		c := mapper.Canonical(e.Category)
		ref := Reference{
			ID:           e.ID,
			Text:         e.Text,
			Category:     c,
			DocumentType: e.DocumentType,
			Source:       e.Source,
			Vector:       e.Embedding,
		}
		if ref.ID == "" {
			ref.ID = SnapshotID(c, e.Text)
		}
		if len(ref.Vector) == 0 {
			if embedder == nil {
				return 0, fmt.Errorf("snapshot entry %s has no embedding and no embedder is configured", ref.ID)
			}
			emb := embedder.Embed(ctx, e.Text)
			if emb.Empty() {
				logger.Warn("skipping snapshot entry that could not be embedded", zap.String("id", ref.ID))
				continue
			}
			ref.Vector = emb.Vector
		}
		refs = append(refs, ref)
	}

	if err := sink.Add(ctx, refs); err != nil {
		return 0, err
	}
	return len(refs), nil
}
