package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Storage 战绩表的持久化位置，整表读写
type Storage interface {
	// Load 读取整张表，尚未保存过时返回 nil, nil
	Load(ctx context.Context) ([]byte, error)
	// Save 覆盖写入整张表
	Save(ctx context.Context, data []byte) error
}

// FileStorage 文件存储
type FileStorage struct {
	fs   afero.Fs
	path string
}

// NewFileStorage 创建文件存储，fs 为 nil 时使用本地文件系统
func NewFileStorage(fs afero.Fs, path string) *FileStorage {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStorage{fs: fs, path: path}
}

// Load 读取文件
func (s *FileStorage) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取战绩文件失败: %w", err)
	}
	return data, nil
}

// Save 先写临时文件再重命名，避免写一半的文件
func (s *FileStorage) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建战绩目录失败: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入战绩文件失败: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("替换战绩文件失败: %w", err)
	}
	return nil
}
