package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/noteservice"
	"github.com/starford/nisabo/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	svc := noteservice.NewService(testutil.TestStore(t), nil, nil)
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are invoked directly.
	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "list_versions":
		result, err = srv.listVersions(ctx, req)
	default:
		require.FailNow(t, "unknown tool", name)
	}
	require.NoError(t, err, "tool %s", name)
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"name":    "Test",
		"content": "# Test\nHello",
	})
	require.False(t, r.IsError, resultText(r))
	// README is note 1.
	assert.Equal(t, "created: 2 Test", resultText(r))

	r = callTool(t, srv, "read_note", map[string]any{"id": float64(2)})
	var note noteservice.NoteDetail
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &note))
	assert.Equal(t, "Test", note.Name)
	assert.Equal(t, "# Test\nHello", note.Body())
}

func TestCreateNote_Child(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"name": "Parent"})
	r := callTool(t, srv, "create_note", map[string]any{"name": "Child", "parent_id": float64(2), "content": "nested"})
	require.False(t, r.IsError, resultText(r))

	r = callTool(t, srv, "list_notes", map[string]any{})
	assert.Contains(t, resultText(r), "- [2] Parent\n  - [3] Child\n")

	r = callTool(t, srv, "read_note", map[string]any{"id": float64(3)})
	var note noteservice.NoteDetail
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &note))
	assert.Equal(t, "nested", note.Body())
}

func TestCreateNote_Errors(t *testing.T) {
	srv := testServer(t)
	assert.True(t, callTool(t, srv, "create_note", map[string]any{}).IsError, "missing name")
	assert.True(t, callTool(t, srv, "create_note", map[string]any{"name": "x", "parent_id": float64(99)}).IsError,
		"missing parent")
}

func TestReadNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"id": float64(404)})
	assert.True(t, r.IsError)
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"name": "Kafka", "content": "partitions and offsets"})
	callTool(t, srv, "create_note", map[string]any{"name": "Redis", "content": "sorted sets"})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "offsets"})
	var results []models.Note
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Kafka", results[0].Name)

	assert.True(t, callTool(t, srv, "search_notes", map[string]any{}).IsError, "missing query")
}

func TestListVersions(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"name": "Log", "content": "first"})

	r := callTool(t, srv, "list_versions", map[string]any{"id": float64(2)})
	var versions []models.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)

	assert.True(t, callTool(t, srv, "list_versions", map[string]any{"id": float64(99)}).IsError, "missing note")
}
