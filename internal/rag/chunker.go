package rag

import (
	"strings"

	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"go.uber.org/zap"
)

// maxChunks 单文档窗口数量上限，超出部分静默截断
// 防止病态的 overlap 配置导致内存爆炸
const maxChunks = 1000

// Chunk 将文本切分为带重叠的定长窗口
// 窗口 i 从窗口 i-1 的末尾减去 overlap 处开始，每个窗口去除首尾空白，
// 空窗口被丢弃。返回的切片顺序即阅读顺序，下标 0..n-1 连续。
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, errors.NewInvalidParameterError("chunk_size", "must be positive")
	}
	if overlap < 0 {
		return nil, errors.NewInvalidParameterError("overlap", "cannot be negative")
	}
	if overlap >= chunkSize {
		return nil, errors.NewInvalidParameterError("overlap", "must be less than chunk_size")
	}

	// 空白文本产生零个分块，不是错误
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{}, nil
	}

	runes := []rune(trimmed)
	if len(runes) <= chunkSize {
		return []string{trimmed}, nil
	}

	chunks := make([]string, 0, len(runes)/(chunkSize-overlap)+1)
	start := 0
	truncated := false
	for start < len(runes) {
		if len(chunks) >= maxChunks {
			truncated = true
			break
		}

		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}

		if end == len(runes) {
			break
		}
		// overlap < chunkSize 保证步进严格为正
		start = end - overlap
	}

	if truncated {
		logger.Warn("chunk limit reached, document truncated",
			zap.Int("max_chunks", maxChunks),
			zap.Int("text_len", len(runes)))
	}

	return chunks, nil
}
