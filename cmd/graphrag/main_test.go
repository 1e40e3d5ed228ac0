package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/processor/query"
	fixtures "github.com/c360/graphrag/testutil"
)

func writeGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, fixtures.InsuranceGraphJSON(), 0o600))
	return path
}

func TestRun_Query(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"--graph", writeGraph(t), "--log-level", "error", "query", "What", "is", "the", "status", "of", "claim", "CL4001?"},
		strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)

	var resp query.Response
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "claim_status", resp.Intent)
	assert.Equal(t, "Your claim CL4001 is currently pending. {additional_info}", resp.Answer)
	assert.True(t, resp.Success)
}

func TestRun_Repl(t *testing.T) {
	input := strings.Join([]string{
		"What is the status of claim CL4001?",
		"/stats",
		"/bogus",
		"/quit",
		"never answered",
	}, "\n")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"--graph", writeGraph(t), "--log-level", "error", "repl"},
		strings.NewReader(input), &stdout, &stderr)
	require.NoError(t, err)

	dec := json.NewDecoder(&stdout)
	var resp query.Response
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, "claim_status", resp.Intent)

	var stats query.Stats
	require.NoError(t, dec.Decode(&stats))
	assert.Equal(t, 1, stats.TotalQueries)

	rest, err := io.ReadAll(io.MultiReader(dec.Buffered(), &stdout))
	require.NoError(t, err)
	assert.Contains(t, string(rest), "unknown command /bogus")
	assert.NotContains(t, string(rest), "never answered")
}

func TestRun_Batch(t *testing.T) {
	questions := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(questions, []byte("What is the status of claim CL4001?\n\nHow do I file a claim?\n"), 0o600))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"--graph", writeGraph(t), "--log-level", "error", "--concurrency", "2", "batch", questions},
		strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)

	var responses []query.Response
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &responses))
	require.Len(t, responses, 2)
	assert.Equal(t, "claim_status", responses[0].Intent)
	assert.Equal(t, "filing_claim", responses[1].Intent)
}

func TestRun_EvolveAndExport(t *testing.T) {
	dir := t.TempDir()
	batch, err := json.Marshal(fixtures.CarBatch(6))
	require.NoError(t, err)
	batchPath := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batchPath, batch, 0o600))
	exportPath := filepath.Join(dir, "schema.yaml")

	var stdout, stderr bytes.Buffer
	err = run(context.Background(),
		[]string{"--log-level", "error", "--threshold", "0.1", "--export", exportPath, "evolve", batchPath},
		strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)

	var report struct {
		NewEntityTypes []struct {
			Name string `json:"name"`
		} `json:"new_entity_types"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Len(t, report.NewEntityTypes, 1)
	assert.Equal(t, "Car", report.NewEntityTypes[0].Name)

	exported, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "Car")
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--version"}, nil, &stdout, &bytes.Buffer{}))
	assert.Equal(t, "graphrag version "+Version+"\n", stdout.String())
}

func TestRun_ExitCodes(t *testing.T) {
	err := run(context.Background(), []string{"--log-level", "trace"}, nil, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, exitInvalid, exitCode(err))

	err = run(context.Background(),
		[]string{"--config", filepath.Join("testdata", "missing.json"), "query", "hello"},
		nil, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)
	assert.Equal(t, exitInvalid, exitCode(err))

	assert.Equal(t, exitFatal, exitCode(errors.WrapFatal(io.ErrUnexpectedEOF, "metric", "Start", "listen")))
	assert.Equal(t, exitFailure, exitCode(io.ErrUnexpectedEOF))
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"default repl", nil, true},
		{"query", []string{"query", "hello"}, true},
		{"query without text", []string{"query"}, false},
		{"evolve needs file", []string{"evolve"}, false},
		{"batch", []string{"batch", "q.txt"}, true},
		{"negative concurrency", []string{"--concurrency", "-1", "batch", "q.txt"}, false},
		{"export", []string{"export", "out.json"}, true},
		{"unknown command", []string{"serve"}, false},
		{"bad level", []string{"--log-level", "trace"}, false},
		{"bad format", []string{"--log-format", "xml"}, false},
		{"threshold above one", []string{"--threshold", "1.5", "evolve", "x.json"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseFlags(tt.args)
			require.NoError(t, err)
			err = validateFlags(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseFlags_DebugOverridesLevel(t *testing.T) {
	cfg, err := parseFlags([]string{"--log-level", "warn", "--debug", "query", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, cmdQuery, cfg.Command)
	assert.Equal(t, []string{"a", "b"}, cfg.Args)
}
