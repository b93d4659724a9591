package mcp_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bduran04/festival-finder/internal/mcp"
	"github.com/bduran04/festival-finder/internal/model"
	"github.com/bduran04/festival-finder/internal/storage"
	"github.com/bduran04/festival-finder/internal/testutil"
)

var (
	testDB  *storage.DB
	testMCP *mcp.Server
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc := testutil.MustStartPostgres()

	var err error
	testDB, err = tc.NewTestDB(ctx, testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	testMCP = mcp.New(testDB, "test", testutil.TestLogger())

	code := m.Run()

	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

// newMCPClient creates an in-process MCP client bound to the test server.
func newMCPClient(t *testing.T) *mcpclient.Client {
	t.Helper()

	c, err := mcpclient.NewInProcessClient(testMCP.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Start(context.Background()))
	_, err = c.Initialize(context.Background(), mcplib.InitializeRequest{
		Params: mcplib.InitializeParams{
			ClientInfo: mcplib.Implementation{Name: "test-client", Version: "1.0"},
		},
	})
	require.NoError(t, err)
	return c
}

func seedFestival(t *testing.T, name, description string, category model.Category) model.Festival {
	t.Helper()

	desc := description
	f, err := testDB.CreateFestival(context.Background(), model.FestivalInput{
		Name:        name,
		Description: &desc,
	}, model.Enrichment{
		Category:        category,
		SentimentScore:  0.5,
		PopularityScore: 0.7,
		Summary:         description,
	})
	require.NoError(t, err)
	return f
}

func callTool(t *testing.T, c *mcpclient.Client, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()

	result, err := c.CallTool(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	return result
}

func textContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestListTools(t *testing.T) {
	c := newMCPClient(t)

	toolsResult, err := c.ListTools(context.Background(), mcplib.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, toolsResult.Tools, 4)

	toolNames := make(map[string]bool)
	for _, tool := range toolsResult.Tools {
		toolNames[tool.Name] = true
	}
	assert.True(t, toolNames["festival_search"], "expected festival_search tool")
	assert.True(t, toolNames["festival_get"], "expected festival_get tool")
	assert.True(t, toolNames["festival_categories"], "expected festival_categories tool")
	assert.True(t, toolNames["festival_stats"], "expected festival_stats tool")
}

func TestSearchTool(t *testing.T) {
	seedFestival(t, "Didgeridoo Days", "A didgeridoo gathering in the hills.", model.CategoryMusic)
	c := newMCPClient(t)

	result := callTool(t, c, "festival_search", map[string]any{"query": "didgeridoo"})
	assert.False(t, result.IsError)
	assert.Contains(t, textContent(t, result), "Didgeridoo Days")

	// Missing query is a tool error, not a transport error.
	result = callTool(t, c, "festival_search", map[string]any{})
	assert.True(t, result.IsError)
}

func TestSearchToolDefaultLimit(t *testing.T) {
	// Unspecified limit matches the HTTP search default of 20 rows.
	for i := 0; i < 25; i++ {
		seedFestival(t, fmt.Sprintf("Hurdy-Gurdy Gathering %d", i),
			"A hurdy-gurdy showcase.", model.CategoryMusic)
	}
	c := newMCPClient(t)

	result := callTool(t, c, "festival_search", map[string]any{"query": "hurdy-gurdy"})
	assert.False(t, result.IsError)
	assert.Equal(t, 20, strings.Count(textContent(t, result), "Hurdy-Gurdy Gathering"))
}

func TestGetTool(t *testing.T) {
	f := seedFestival(t, "Lookup Fest", "One festival to look up.", model.CategoryGeneral)
	c := newMCPClient(t)

	result := callTool(t, c, "festival_get", map[string]any{"id": f.ID})
	assert.False(t, result.IsError)
	assert.Contains(t, textContent(t, result), "Lookup Fest")

	result = callTool(t, c, "festival_get", map[string]any{"id": 999999})
	assert.True(t, result.IsError)

	result = callTool(t, c, "festival_get", map[string]any{})
	assert.True(t, result.IsError)
}

func TestCategoriesAndStatsTools(t *testing.T) {
	seedFestival(t, "Stat Fest", "Counted in the stats.", model.CategoryOutdoor)
	c := newMCPClient(t)

	result := callTool(t, c, "festival_categories", nil)
	assert.False(t, result.IsError)
	assert.Contains(t, textContent(t, result), string(model.CategoryOutdoor))

	result = callTool(t, c, "festival_stats", nil)
	assert.False(t, result.IsError)
	text := textContent(t, result)
	assert.Contains(t, text, "total_festivals")
	assert.Contains(t, text, "operational")
}
