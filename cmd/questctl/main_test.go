package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/questplan/internal/assistant"
	"github.com/p-blackswan/questplan/internal/auth"
	"github.com/p-blackswan/questplan/internal/llm/llmtest"
	"github.com/p-blackswan/questplan/internal/retry"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const planJSON = `{
  "projectName": "Cat Blog",
  "projectDescription": "A blog about cats",
  "tasks": [
    {"name": "Pick a theme", "description": "Choose a look", "xp": 30, "difficulty": "easy", "timeEstimate": 1},
    {"name": "Write posts", "description": "Three posts", "xp": 120, "difficulty": "medium", "timeEstimate": 6}
  ]
}`

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCmd(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "questctl plan")

	code, _, _ = runCmd(t, "help")
	assert.Equal(t, 0, code)

	code, _, errOut = runCmd(t, "launch")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown command "launch"`)
}

func TestRun_CommandHelp(t *testing.T) {
	for _, name := range []string{"plan", "import", "token"} {
		code, out, _ := runCmd(t, name, "--help")
		assert.Equal(t, 0, code, name)
		assert.True(t, strings.HasPrefix(out, usageFor(name)+"\n"), out)
	}

	code, _, errOut := runCmd(t, "migrate", "extra")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage: questctl migrate")
}

func TestToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_JWT_AUDIENCE", "authenticated")

	code, out, errOut := runCmd(t, "token", "--user", "user-1", "--email", "a@example.com", "--ttl", "1h")
	require.Equal(t, 0, code, errOut)

	authn, err := auth.New(auth.Config{Mode: auth.ModeJWT, Secret: []byte("s3cret"), Audience: "authenticated"}, zerolog.Nop())
	require.NoError(t, err)
	p, err := authn.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "a@example.com", p.Email)
}

func TestToken_Errors(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	code, _, errOut := runCmd(t, "token")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--user is required")

	t.Setenv("AUTH_JWT_SECRET", "")
	code, _, errOut = runCmd(t, "token", "-u", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "AUTH_JWT_SECRET")
}

func TestImportAndMigrate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "quest.db"))

	code, out, errOut := runCmd(t, "migrate")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "schema version")

	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte("```json\n"+planJSON+"\n```"), 0o600))

	code, out, errOut = runCmd(t, "import", "--user", "user-1", path)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Created project #1 \"Cat Blog\" with 2 tasks (150 XP)\n", out)

	code, _, errOut = runCmd(t, "import", "--user", "user-1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "exactly one plan file")
}

func newSession(t *testing.T, responses ...llmtest.Response) (*planSession, *bytes.Buffer) {
	t.Helper()
	settings := assistant.DefaultSettings()
	settings.Retry = retry.Config{MaxAttempts: 1}
	asst := assistant.New(llmtest.New(responses...), assistant.MustDefaultCatalog(), nil, nil, settings, nil, zerolog.Nop())
	var out bytes.Buffer
	return &planSession{
		assistant: asst,
		lang:      "en",
		outPath:   filepath.Join(t.TempDir(), "plan.json"),
		out:       &out,
	}, &out
}

func TestPlanSession_ConversationAndGenerate(t *testing.T) {
	s, out := newSession(t,
		llmtest.Response{Chunks: []string{"What ", "is it about?"}},
		llmtest.Text(planJSON),
	)
	ctx := context.Background()

	quit, err := s.handle(ctx, "/generate")
	assert.False(t, quit)
	assert.ErrorContains(t, err, "nothing to plan yet")

	quit, err = s.handle(ctx, "I want a blog")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "What is it about?")
	require.Len(t, s.messages, 2)
	assert.Equal(t, "What is it about?", s.messages[1].Content)

	_, err = s.handle(ctx, "/generate")
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Saved "Cat Blog"`)

	data, err := os.ReadFile(s.outPath)
	require.NoError(t, err)
	var plan roadmap.Plan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, 150, plan.TotalXP)
	assert.Len(t, plan.Tasks, 2)

	got, err := readPlan(s.outPath)
	require.NoError(t, err)
	assert.Equal(t, "Cat Blog", got.ProjectName)
}

func TestPlanSession_Commands(t *testing.T) {
	s, out := newSession(t, llmtest.Response{Err: context.DeadlineExceeded})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.handle(ctx, "/bogus")
	assert.ErrorContains(t, err, "unknown command /bogus")

	_, err = s.handle(ctx, "hello")
	assert.Error(t, err)
	assert.Empty(t, s.messages, "failed turns are not recorded")

	_, err = s.handle(ctx, "/reset")
	require.NoError(t, err)
	assert.Nil(t, s.messages)
	assert.Contains(t, out.String(), "Conversation cleared.")

	quit, err := s.handle(ctx, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)
}
