package rag

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tamyadav31/BOT-GPT/internal/config"
)

// ErrBlobNotFound 表示指定文档从未持久化过索引
// 这是正常路径，调用方应当返回空检索结果而非报错
var ErrBlobNotFound = stderrors.New("index blob not found")

// BlobStore 索引持久化抽象，按文档ID存取不透明字节块
type BlobStore interface {
	Put(ctx context.Context, documentID uint, data []byte) error
	Get(ctx context.Context, documentID uint) ([]byte, error)
	Delete(ctx context.Context, documentID uint) error
}

// NewBlobStore 根据配置创建索引存储，provider 为 local 或 minio
func NewBlobStore(cfg config.IndexStorageConfig) (BlobStore, error) {
	switch cfg.Provider {
	case "minio":
		return NewMinioBlobStore(cfg)
	case "", "local":
		return NewLocalBlobStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown index storage provider: %s", cfg.Provider)
	}
}

// LocalBlobStore 本地文件系统索引存储
// 每个文档一个文件：<dir>/doc_<id>.index
type LocalBlobStore struct {
	dir string
}

// NewLocalBlobStore 创建本地索引存储
func NewLocalBlobStore(dir string) (*LocalBlobStore, error) {
	if dir == "" {
		dir = "./data/indexes"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory %s: %w", dir, err)
	}
	return &LocalBlobStore{dir: dir}, nil
}

func (s *LocalBlobStore) path(documentID uint) string {
	return filepath.Join(s.dir, fmt.Sprintf("doc_%d.index", documentID))
}

func (s *LocalBlobStore) Put(ctx context.Context, documentID uint, data []byte) error {
	// 写临时文件后rename，避免并发读取到半写状态
	tmp := s.path(documentID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(documentID))
}

func (s *LocalBlobStore) Get(ctx context.Context, documentID uint) ([]byte, error) {
	data, err := os.ReadFile(s.path(documentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *LocalBlobStore) Delete(ctx context.Context, documentID uint) error {
	err := os.Remove(s.path(documentID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MinioBlobStore 基于MinIO对象存储的索引存储
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

// NewMinioBlobStore 创建MinIO索引存储，bucket不存在时自动创建
func NewMinioBlobStore(cfg config.IndexStorageConfig) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioBlobStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioBlobStore) objectName(documentID uint) string {
	return fmt.Sprintf("doc_%d.index", documentID)
}

func (s *MinioBlobStore) Put(ctx context.Context, documentID uint, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(documentID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

func (s *MinioBlobStore) Get(ctx context.Context, documentID uint) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(documentID), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if stderrors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *MinioBlobStore) Delete(ctx context.Context, documentID uint) error {
	return s.client.RemoveObject(ctx, s.bucket, s.objectName(documentID), minio.RemoveObjectOptions{})
}
