package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/manifest"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

const graphJSON = `{
  "classes": [
    {"name": "com.example.MainActivity", "application": true,
     "methods": ["<com.example.MainActivity: void onCreate(android.os.Bundle)>", "<com.example.MainActivity: void leak()>"]},
    {"name": "android.telephony.TelephonyManager", "application": false,
     "methods": ["<android.telephony.TelephonyManager: java.lang.String getDeviceId()>"]}
  ],
  "edges": [
    {"src": "<com.example.MainActivity: void onCreate(android.os.Bundle)>", "tgt": "<com.example.MainActivity: void leak()>"},
    {"src": "<com.example.MainActivity: void leak()>", "tgt": "<android.telephony.TelephonyManager: java.lang.String getDeviceId()>"},
    {"src": "not a signature", "tgt": "<com.example.MainActivity: void leak()>"}
  ],
  "reachable": ["<android.telephony.TelephonyManager: java.lang.String getDeviceId()>"]
}`

const fakeBridge = `#!/bin/sh
cmd=$1
shift
if [ "$cmd" = "manifest" ]; then
  echo '{"package":"com.example","min_sdk":"21","target_sdk":"30","permissions":["android.permission.READ_PHONE_STATE"]}'
  exit 0
fi
if [ "$FAKE_BRIDGE_FAIL" = "1" ]; then
  echo "analysis exploded" 1>&2
  exit 2
fi
while [ $# -gt 0 ]; do
  case "$1" in
    --callgraph-out) out=$2; shift ;;
  esac
  shift
done
if [ "$FAKE_BRIDGE_NO_GRAPH" = "1" ]; then
  exit 0
fi
cp "$(dirname "$0")/graph.json" "$out"
`

func setupBridge(t *testing.T) config.EngineConfig {
	t.Helper()
	if err := utils.CheckCommandAvailable("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "bridge.sh")
	require.NoError(t, os.WriteFile(script, []byte(fakeBridge), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graph.json"), []byte(graphJSON), 0600))

	sinksFile := filepath.Join(dir, "SourcesAndSinks.txt")
	require.NoError(t, os.WriteFile(sinksFile, []byte("<android.util.Log: int d(java.lang.String,java.lang.String)> -> _SINK_\n"), 0600))

	return config.EngineConfig{
		Command:         "sh",
		Args:            []string{script},
		SourcesSinks:    sinksFile,
		CodeElimination: "NoCodeElimination",
		CallGraphFile:   "callgraph.json",
	}
}

func TestDecodeGraph(t *testing.T) {
	decoded, err := DecodeGraph(strings.NewReader(graphJSON))
	require.NoError(t, err)

	assert.Equal(t, 1, decoded.Skipped)
	require.Len(t, decoded.Graph.Classes(), 2)
	assert.True(t, decoded.Graph.Classes()[0].Application)

	leak, err := models.ParseSignature("<com.example.MainActivity: void leak()>")
	require.NoError(t, err)
	assert.Len(t, decoded.Graph.EdgesInto(leak), 1)
	assert.Len(t, decoded.Graph.EdgesOutOf(leak), 1)

	reachable, known := decoded.Oracle.Lookup(models.MethodSignature{
		DeclaringType: "android.telephony.TelephonyManager",
		Name:          "getDeviceId",
		ReturnType:    "Ljava/lang/String;",
	})
	assert.True(t, reachable)
	assert.True(t, known)
}

func TestDecodeGraphMalformed(t *testing.T) {
	_, err := DecodeGraph(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestAnalyzeArgs(t *testing.T) {
	e := New(config.EngineConfig{SourcesSinks: "sinks.txt", CodeElimination: "NoCodeElimination"}, utils.NewStore(), nil)
	args := e.AnalyzeArgs("app.apk", "/out/callgraph.json", engine.Config{
		PlatformDir:         "/sdk/platforms",
		AdditionalClasspath: []string{"a.jar", "b.jar"},
		Timeout:             90 * time.Second,
		EnableReflection:    true,
		ResultsPath:         "/out/leaks.xml",
	})

	joined := strings.Join(args, " ")
	assert.True(t, strings.HasPrefix(joined, "analyze --apk app.apk --platforms /sdk/platforms --algorithm CHA"))
	assert.Contains(t, joined, "--code-elimination NoCodeElimination")
	assert.Contains(t, joined, "--classpath a.jar"+string(os.PathListSeparator)+"b.jar")
	assert.Contains(t, joined, "--timeout 90")
	assert.Contains(t, joined, "--reflection")
	assert.Contains(t, joined, "--results /out/leaks.xml")
	assert.Equal(t, "/out/callgraph.json", args[len(args)-1])
}

func TestRunAnalysis(t *testing.T) {
	cfg := setupBridge(t)
	e := New(cfg, utils.NewStore(), nil)

	graph, err := e.RunAnalysis(context.Background(), "app.apk", engine.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, graph.Classes(), 2)

	reachable, _ := e.ReachableMethods().Lookup(models.MethodSignature{
		DeclaringType: "android.telephony.TelephonyManager",
		Name:          "getDeviceId",
		ReturnType:    "java.lang.String",
	})
	assert.True(t, reachable)

	catalog, err := e.SinkCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "d", catalog[0].Name)
}

func TestRunAnalysisFailures(t *testing.T) {
	cfg := setupBridge(t)
	e := New(cfg, utils.NewStore(), nil)

	t.Setenv("FAKE_BRIDGE_NO_GRAPH", "1")
	_, err := e.RunAnalysis(context.Background(), "app.apk", engine.Config{OutputDir: t.TempDir()})
	assert.True(t, errors.Is(err, engine.ErrNoCallGraph), "got %v", err)

	t.Setenv("FAKE_BRIDGE_FAIL", "1")
	_, err = e.RunAnalysis(context.Background(), "app.apk", engine.Config{OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis exploded")

	reachable, known := e.ReachableMethods().Lookup(models.MethodSignature{DeclaringType: "a.B", Name: "c"})
	assert.False(t, reachable)
	assert.False(t, known)

	_, err = e.RunAnalysis(context.Background(), "app.apk", engine.Config{})
	assert.Error(t, err)
}

func TestManifestReader(t *testing.T) {
	cfg := setupBridge(t)
	info, err := NewManifestReader(cfg, nil).Read(context.Background(), "app.apk")
	require.NoError(t, err)
	assert.Equal(t, "com.example", info.PackageName)
	assert.Equal(t, "21", info.MinSdkVersion)
	assert.Equal(t, []string{"android.permission.READ_PHONE_STATE"}, info.Permissions)
}

func TestDecodeManifest(t *testing.T) {
	info, err := DecodeManifest([]byte(`{"permissions":["b","a"]}`), "/apps/sample.apk")
	require.NoError(t, err)
	assert.Equal(t, "sample", info.PackageName)
	assert.Equal(t, []string{"a", "b"}, info.Permissions)

	_, err = DecodeManifest(nil, "x.apk")
	assert.True(t, errors.Is(err, manifest.ErrNoManifest))

	_, err = DecodeManifest([]byte("<xml/>"), "x.apk")
	assert.True(t, errors.Is(err, manifest.ErrNoManifest))
}
