package folio

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/ai/mock"
	"github.com/poiesic/folio/chunker"
	"github.com/poiesic/folio/conversation"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/retrieval"
	"github.com/poiesic/folio/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var works = chunker.Join([]core.Chunk{
	{Text: "To be, or not to be, that is the question."},
	{Text: "Shall I compare thee to a summer's day?"},
	{Text: "Now is the winter of our discontent."},
})

func openTestLibrary(t *testing.T, provider ai.AIProvider, opts ...LibraryOption) *Library {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)

	lib, err := Open("", append([]LibraryOption{WithStore(store), WithProvider(provider)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestOpen(t *testing.T) {
	t.Run("badger store at path", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "folio_db")
		lib, err := Open(dir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer lib.Close()

		assert.NotNil(t, lib.Store())
		assert.NotNil(t, lib.Provider())
		assert.Equal(t, DefaultCollection, lib.Collection())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		lib, err := Open(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, lib)
	})

	t.Run("invalid collection name", func(t *testing.T) {
		lib, err := Open(t.TempDir(), WithProvider(mock.NewMockProvider()), WithCollection("drop table;"))
		assert.Error(t, err)
		assert.Nil(t, lib)
	})

	t.Run("openai provider from config", func(t *testing.T) {
		store, err := badger.NewMemoryStore()
		require.NoError(t, err)

		lib, err := Open("", WithStore(store), WithAIConfig(ai.NewConfig(ai.WithAPIKey("test-key"))))
		require.NoError(t, err)
		defer lib.Close()
		assert.NotNil(t, lib.Provider().ChatModel())
	})
}

func TestLibrary_Close(t *testing.T) {
	provider := mock.NewMockProvider()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)

	lib, err := Open("", WithStore(store), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, lib.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())

	_, err = store.Info(context.Background(), DefaultCollection)
	assert.Error(t, err)
}

func TestLibrary_IngestThenChat(t *testing.T) {
	ctx := context.Background()
	call := ai.ToolCall{ID: "call_1", Name: retrieval.ToolName, Arguments: `{"query":"To be, or not to be, that is the question."}`}
	chat := mock.NewMockChatModel(mock.CallTools(call), mock.Reply("Aye, that is the question."))
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat)
	lib := openTestLibrary(t, provider)

	pipeline, err := lib.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	report, err := pipeline.IngestText(ctx, works)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Stored)

	info, err := lib.Store().Info(ctx, lib.Collection())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Count)

	session, err := lib.NewSession("What is the question?")
	require.NoError(t, err)

	tr, err := session.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, conversation.StateTerminal, session.State())

	msgs := tr.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, ai.RoleTool, msgs[3].Role)

	var result struct {
		Text []retrieval.Passage `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(msgs[3].Content), &result))
	require.Len(t, result.Text, 1)
	assert.Equal(t, "To be, or not to be, that is the question.", result.Text[0].Text)

	assert.Equal(t, "Aye, that is the question.", msgs[4].Content)
}

func TestLibrary_NewSessionDefaults(t *testing.T) {
	chat := mock.NewMockChatModel(mock.Reply("Good morrow."))
	lib := openTestLibrary(t, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat),
		WithRetrievalOptions(retrieval.WithTopN(2)))

	session, err := lib.NewSession("  ")
	require.NoError(t, err)

	msgs := session.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.DefaultSystemPrompt(retrieval.ToolName), msgs[0].Content)
	assert.Equal(t, conversation.DefaultUserPrompt, msgs[1].Content)
}

func TestLibrary_RetrievalToolOptions(t *testing.T) {
	lib := openTestLibrary(t, mock.NewMockProvider(), WithRetrievalOptions(retrieval.WithTopN(0)))

	_, err := lib.NewRetrievalTool()
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	tool, err := lib.NewRetrievalTool(retrieval.WithTopN(3))
	require.NoError(t, err)
	assert.Equal(t, retrieval.ToolName, tool.Definition().Name)
}
