package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/binzume/fbx2gltf/converter"
	"github.com/binzume/fbx2gltf/fbx"
	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
)

func writeQuadFBX(t *testing.T, dir string) string {
	t.Helper()
	doc := fbx.NewDocument()
	m := fbx.NewModel("Quad", "Mesh")
	doc.AddObject(m)
	doc.AddConnection(doc.Scene, m)
	g := fbx.NewGeometry("Quad", []*geom.Vector3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}}, [][]int{{0, 1, 2, 3}})
	doc.AddObject(g)
	doc.AddConnection(m, g)

	path := filepath.Join(dir, "quad.fbx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, fbx.WriteBinary(f, doc.Build(), 7400))
	return path
}

func TestDefaultOutputFile(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", "hero_glTF", "hero.gltf"), defaultOutputFile("/work", "/data/models/hero.fbx"))
	assert.Equal(t, filepath.Join("/work", "a.b_glTF", "a.b.gltf"), defaultOutputFile("/work", "a.b.FBX"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewReport(t *testing.T) {
	result := &converter.Result{
		Warnings: []error{
			&converter.ResourceWarning{Material: "skin", Slot: scene.BaseColorTexture, Path: "skin.png", Err: errors.New("not found")},
			&converter.SuspectAnimationWarning{Take: "Take 001", Declared: 3600, Limit: 60},
		},
		Takes: []converter.TakeSummary{{Name: "Take 001", Duration: 60, Samples: 1801, Suspect: true}},
	}
	r := newReport("in.fbx", "out.gltf", result)
	require.Len(t, r.Warnings, 2)
	assert.Equal(t, "texture", r.Warnings[0].Kind)
	assert.Equal(t, "skin", r.Warnings[0].Material)
	assert.Equal(t, "skin.png", r.Warnings[0].Path)
	assert.Equal(t, "animation", r.Warnings[1].Kind)
	assert.Equal(t, "Take 001", r.Warnings[1].Take)
	assert.Equal(t, []reportTake{{Name: "Take 001", Duration: 60, Samples: 1801, Suspect: true}}, r.Takes)
}

func TestConvertFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	input := writeQuadFBX(t, dir)
	output := filepath.Join(dir, "out", "quad.glb")
	require.NoError(t, os.MkdirAll(filepath.Dir(output), 0o755))
	reportPath := filepath.Join(dir, "report.yaml")
	viper.Set("report", reportPath)

	require.NoError(t, convertFile(context.Background(), input, output, zap.NewNop()))
	assert.FileExists(t, output)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var r report
	require.NoError(t, yaml.Unmarshal(data, &r))
	assert.Equal(t, input, r.Input)
	assert.Equal(t, output, r.Output)
	assert.Empty(t, r.Warnings)
}

func TestDumpCommand(t *testing.T) {
	t.Cleanup(viper.Reset)
	input := writeQuadFBX(t, t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"dump", input})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "; FBX 7400")
	assert.Contains(t, out.String(), "Objects:")
	assert.Contains(t, out.String(), "PolygonVertexIndex:")
}
