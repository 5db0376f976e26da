package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamyadav31/BOT-GPT/internal/llm"
	"github.com/tamyadav31/BOT-GPT/internal/models"
	"github.com/tamyadav31/BOT-GPT/internal/rag"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeRetriever 按文档ID返回固定检索结果
type fakeRetriever struct {
	matches map[uint][]rag.Match
	errs    map[uint]error
}

func (f *fakeRetriever) Query(ctx context.Context, documentID uint, queryText string, k int) ([]rag.Match, error) {
	if err, ok := f.errs[documentID]; ok {
		return nil, err
	}
	return f.matches[documentID], nil
}

// fakeChunkLoader 按 (document_id, chunk_index) 返回固定文本
type fakeChunkLoader struct {
	texts map[string]string
}

func (f *fakeChunkLoader) GetChunkText(ctx context.Context, documentID uint, chunkIndex int) (string, error) {
	key := fmt.Sprintf("%d:%d", documentID, chunkIndex)
	text, ok := f.texts[key]
	if !ok {
		return "", fmt.Errorf("chunk not found: %s", key)
	}
	return text, nil
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func associationRows(docIDs ...uint) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "document_id"})
	for i, id := range docIDs {
		rows.AddRow(i+1, 1, id)
	}
	return rows
}

func TestAssembleOpenMode(t *testing.T) {
	gdb, _ := newMockDB(t)
	assembler := NewContextAssembler(gdb, &fakeRetriever{}, &fakeChunkLoader{}, 3)

	history := []models.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}

	entries, err := assembler.Assemble(context.Background(), 1, models.ModeOpen, "how are you", history, 10)
	require.NoError(t, err)

	// open模式：系统提示 + 历史 + 新消息，无文档上下文
	require.Len(t, entries, 4)
	assert.Equal(t, llm.RoleSystem, entries[0].Role)
	assert.Equal(t, baseSystemPrompt, entries[0].Content)
	assert.Equal(t, "hi", entries[1].Content)
	assert.Equal(t, "hello", entries[2].Content)
	assert.Equal(t, llm.RoleUser, entries[3].Role)
	assert.Equal(t, "how are you", entries[3].Content)
}

func TestAssembleHistoryTruncation(t *testing.T) {
	gdb, _ := newMockDB(t)
	assembler := NewContextAssembler(gdb, &fakeRetriever{}, &fakeChunkLoader{}, 3)

	history := make([]models.Message, 12)
	for i := range history {
		history[i] = models.Message{Role: llm.RoleUser, Content: fmt.Sprintf("msg-%d", i)}
	}

	entries, err := assembler.Assemble(context.Background(), 1, models.ModeOpen, "latest", history, 10)
	require.NoError(t, err)

	// 系统提示 + 最近10条历史 + 新消息
	require.Len(t, entries, 12)
	assert.Equal(t, "msg-2", entries[1].Content)
	assert.Equal(t, "msg-11", entries[10].Content)
	assert.Equal(t, "latest", entries[11].Content)
}

func TestAssembleRAGModeWithDocumentContext(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "conversation_documents"`).
		WillReturnRows(associationRows(7))

	retriever := &fakeRetriever{
		matches: map[uint][]rag.Match{
			7: {
				{ChunkIndex: 2, Distance: 0.1},
				{ChunkIndex: 0, Distance: 0.5},
			},
		},
	}
	loader := &fakeChunkLoader{texts: map[string]string{
		"7:2": "the sky is blue",
		"7:0": "grass is green",
	}}

	assembler := NewContextAssembler(gdb, retriever, loader, 3)
	entries, err := assembler.Assemble(context.Background(), 1, models.ModeRAG, "what color is the sky?", nil, 10)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, baseSystemPrompt+ragSystemClause, entries[0].Content)
	assert.Equal(t, llm.RoleSystem, entries[1].Role)
	// 距离升序：最相关的分块在前
	assert.Equal(t, "Document Context:\nthe sky is blue\n\ngrass is green", entries[1].Content)
	assert.Equal(t, "what color is the sky?", entries[2].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssembleRAGModeDocumentOrder(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "conversation_documents"`).
		WillReturnRows(associationRows(5, 9))

	retriever := &fakeRetriever{
		matches: map[uint][]rag.Match{
			5: {{ChunkIndex: 0, Distance: 0.9}},
			9: {{ChunkIndex: 1, Distance: 0.1}},
		},
	}
	loader := &fakeChunkLoader{texts: map[string]string{
		"5:0": "from first document",
		"9:1": "from second document",
	}}

	assembler := NewContextAssembler(gdb, retriever, loader, 3)
	entries, err := assembler.Assemble(context.Background(), 1, models.ModeRAG, "query", nil, 10)
	require.NoError(t, err)

	// 文档按关联顺序出现，不按距离跨文档重排
	require.Len(t, entries, 3)
	assert.Equal(t, "Document Context:\nfrom first document\n\nfrom second document", entries[1].Content)
}

func TestAssembleRAGModeFailureIsolation(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "conversation_documents"`).
		WillReturnRows(associationRows(5, 9))

	retriever := &fakeRetriever{
		matches: map[uint][]rag.Match{
			9: {{ChunkIndex: 0, Distance: 0.2}},
		},
		errs: map[uint]error{
			5: fmt.Errorf("index corrupted"),
		},
	}
	loader := &fakeChunkLoader{texts: map[string]string{
		"9:0": "surviving context",
	}}

	assembler := NewContextAssembler(gdb, retriever, loader, 3)
	entries, err := assembler.Assemble(context.Background(), 1, models.ModeRAG, "query", nil, 10)
	require.NoError(t, err)

	// 单个文档失败被跳过，其余文档仍然贡献上下文
	require.Len(t, entries, 3)
	assert.Equal(t, "Document Context:\nsurviving context", entries[1].Content)
}

func TestAssembleRAGModeNoContext(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "conversation_documents"`).
		WillReturnRows(associationRows())

	assembler := NewContextAssembler(gdb, &fakeRetriever{}, &fakeChunkLoader{}, 3)
	entries, err := assembler.Assemble(context.Background(), 1, models.ModeRAG, "query", nil, 10)
	require.NoError(t, err)

	// 无文档上下文时不产生空的系统条目
	require.Len(t, entries, 2)
	assert.Equal(t, baseSystemPrompt+ragSystemClause, entries[0].Content)
	assert.Equal(t, "query", entries[1].Content)
}
