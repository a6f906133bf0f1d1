package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/anyfile/container"
	anyerrors "github.com/wippyai/anyfile/errors"
	"github.com/wippyai/anyfile/metadata"
	"github.com/wippyai/anyfile/wasm"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"anyfile"}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// createSample packs "hello world" from hello.txt with the built-in module.
func createSample(t *testing.T) (dir, anyPath string) {
	t.Helper()
	dir = t.TempDir()
	data := writeFile(t, dir, "hello.txt", []byte("hello world"))
	anyPath = filepath.Join(dir, "hello.any")

	out, _, err := runApp(t, "create", "-o", anyPath, "-d", "greeting", data)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "Created: "+anyPath) {
		t.Errorf("create output = %q", out)
	}
	return dir, anyPath
}

func TestCreate(t *testing.T) {
	_, anyPath := createSample(t)

	raw, err := os.ReadFile(anyPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := container.Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !bytes.Equal(c.Module, wasm.Minimal().Encode()) {
		t.Error("default module is not the bootstrap module")
	}
	if string(c.Payload) != "hello world" {
		t.Errorf("payload = %q", c.Payload)
	}
	for key, want := range map[string]string{
		container.KeyName:             "hello.txt",
		container.KeyDescription:      "greeting",
		container.KeyOriginalFilename: "hello.txt",
	} {
		if got, _ := c.Metadata.GetString(key); got != want {
			t.Errorf("metadata %s = %q, want %q", key, got, want)
		}
	}
	size, _ := c.Metadata.Get(container.KeyOriginalSize)
	if n, ok := size.AsInt64(); !ok || n != 11 {
		t.Errorf("original_size = %v", size)
	}
}

func TestCreate_MetadataFileAndID(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "d.bin", []byte{1, 2, 3})
	mod := writeFile(t, dir, "m.wasm", wasm.WithMemory(1).Encode())
	extra := writeFile(t, dir, "meta.yaml", []byte("author: ada\nname: renamed\ntags: [a, b]\n"))
	anyPath := filepath.Join(dir, "out.any")

	if _, _, err := runApp(t, "create", "-o", anyPath, "--metadata", extra, "--id", data, mod); err != nil {
		t.Fatalf("create: %v", err)
	}
	raw, _ := os.ReadFile(anyPath)
	c, err := container.Deserialize(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Module, wasm.WithMemory(1).Encode()) {
		t.Error("module not taken from WASM argument")
	}
	if got, _ := c.Metadata.GetString("name"); got != "renamed" {
		t.Errorf("name = %q, want merged value", got)
	}
	if got, _ := c.Metadata.GetString("author"); got != "ada" {
		t.Errorf("author = %q", got)
	}
	if id, ok := c.Metadata.GetString("id"); !ok || len(id) != 36 {
		t.Errorf("id = %q", id)
	}
}

func TestCreate_WarnsOnNonWasmModule(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "d.bin", []byte("x"))
	mod := writeFile(t, dir, "not.wasm", []byte("not a module"))

	_, errOut, err := runApp(t, "create", "-o", filepath.Join(dir, "o.any"), data, mod)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(errOut, "does not look like a WebAssembly module") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestCreate_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := runApp(t, "create", "-o", filepath.Join(dir, "o.any")); err == nil {
		t.Error("missing DATA accepted")
	}
	if _, _, err := runApp(t, "create", "-o", filepath.Join(dir, "o.any"), filepath.Join(dir, "missing")); err == nil {
		t.Error("missing data file accepted")
	}
}

func TestInfo_Text(t *testing.T) {
	_, anyPath := createSample(t)

	out, _, err := runApp(t, "info", anyPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{
		"File: " + anyPath,
		"Version: 1.0",
		"WASM Module: 34 bytes",
		"Data: 11 bytes",
		`"original_filename": "hello.txt"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestInfo_JSON(t *testing.T) {
	_, anyPath := createSample(t)

	out, _, err := runApp(t, "info", "--format", "json", anyPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var got struct {
		Version   string         `json:"version"`
		TotalSize int            `json:"total_size"`
		Regions   []infoRegion   `json:"regions"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if got.Version != "1.0" || len(got.Regions) != 3 {
		t.Fatalf("report = %+v", got)
	}
	if got.Regions[0].Offset != container.HeaderSize || got.Regions[0].Size != 34 {
		t.Errorf("module region = %+v", got.Regions[0])
	}
	if got.Metadata["description"] != "greeting" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestInfo_YAML(t *testing.T) {
	_, anyPath := createSample(t)

	out, _, err := runApp(t, "info", "-f", "yaml", anyPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var got map[string]any
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta, ok := got["metadata"].(map[string]any)
	if !ok || meta["name"] != "hello.txt" {
		t.Errorf("metadata = %v", got["metadata"])
	}
}

func TestInfo_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.any", []byte("definitely not a container, far too short"))

	_, _, err := runApp(t, "info", bad)
	if anyerrors.KindOf(err) != anyerrors.KindInvalidMagic {
		t.Errorf("info bad magic error = %v", err)
	}

	_, anyPath := createSample(t)
	if _, _, err := runApp(t, "info", "--format", "xml", anyPath); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestInfo_StrictRejectsTrailing(t *testing.T) {
	_, anyPath := createSample(t)
	raw, _ := os.ReadFile(anyPath)
	if err := os.WriteFile(anyPath, append(raw, "junk"...), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runApp(t, "info", anyPath)
	if err != nil {
		t.Fatalf("lenient info: %v", err)
	}
	if !strings.Contains(out, "Trailing: 4 bytes") {
		t.Errorf("trailing not reported:\n%s", out)
	}

	_, _, err = runApp(t, "--strict", "info", anyPath)
	if anyerrors.KindOf(err) != anyerrors.KindTrailingData {
		t.Errorf("strict info error = %v", err)
	}
}

func TestExtract_DefaultName(t *testing.T) {
	_, anyPath := createSample(t)
	work := t.TempDir()
	t.Chdir(work)

	out, _, err := runApp(t, "extract", anyPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(work, "hello.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("extracted = %q", got)
	}
	if !strings.Contains(out, "Extracted to: hello.txt") {
		t.Errorf("output = %q", out)
	}
}

func TestExtract_FallbackName(t *testing.T) {
	dir := t.TempDir()
	c := container.Create(nil, []byte("payload"), nil)
	raw, err := c.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	anyPath := writeFile(t, dir, "bare.any", raw)
	t.Chdir(dir)

	// The empty module fails staging, which is only a warning.
	_, errOut, err := runApp(t, "extract", anyPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Errorf("stderr = %q, want engine warning", errOut)
	}
	got, err := os.ReadFile(filepath.Join(dir, defaultExtractName))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("extracted = %q", got)
	}
}

func TestExtract_Stdout(t *testing.T) {
	_, anyPath := createSample(t)

	out, _, err := runApp(t, "extract", "-o", "-", anyPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "hello world" {
		t.Errorf("stdout = %q", out)
	}
}

func TestExtract_ExplicitOutput(t *testing.T) {
	dir, anyPath := createSample(t)
	dest := filepath.Join(dir, "copy.bin")

	if _, _, err := runApp(t, "extract", "-o", dest, anyPath); err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "hello world" {
		t.Errorf("extracted = %q", got)
	}
}

func TestDefaultOutputName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"/abs/path/data.csv", "data.csv"},
		{"..", defaultExtractName},
		{"", defaultExtractName},
	}
	for _, tt := range tests {
		c := container.Create(nil, nil, nil)
		if tt.name != "" {
			c.Metadata.Set(container.KeyOriginalFilename, metadata.String(tt.name))
		}
		if got := defaultOutputName(c); got != tt.want {
			t.Errorf("defaultOutputName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	_, anyPath := createSample(t)

	out, _, err := runApp(t, "run", anyPath, "info")
	if err != nil {
		t.Fatalf("run info: %v", err)
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(out), &meta); err != nil {
		t.Fatalf("run info output %q: %v", out, err)
	}
	if meta["original_filename"] != "hello.txt" {
		t.Errorf("metadata = %v", meta)
	}

	out, _, err = runApp(t, "run", anyPath, "extract")
	if err != nil {
		t.Fatalf("run extract: %v", err)
	}
	if out != "hello world" {
		t.Errorf("run extract = %q", out)
	}

	_, _, err = runApp(t, "run", anyPath, "execute")
	if anyerrors.KindOf(err) != anyerrors.KindUnknownOperation {
		t.Errorf("unknown operation error = %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "execute") {
		t.Errorf("error %v does not name the operation", err)
	}
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "min.wasm")
	withMem := filepath.Join(dir, "mem.wasm")

	if _, _, err := runApp(t, "bootstrap", "-o", plain); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if got, _ := os.ReadFile(plain); !bytes.Equal(got, wasm.Minimal().Encode()) {
		t.Errorf("bootstrap = %x", got)
	}

	if _, _, err := runApp(t, "bootstrap", "-o", withMem, "--memory", "2"); err != nil {
		t.Fatalf("bootstrap --memory: %v", err)
	}
	if got, _ := os.ReadFile(withMem); !bytes.Equal(got, wasm.WithMemory(2).Encode()) {
		t.Errorf("bootstrap --memory = %x", got)
	}

	if _, _, err := runApp(t, "bootstrap", "-o", withMem, "--memory", "70000"); err == nil {
		t.Error("oversized memory accepted")
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.toml", []byte("info_format = \"json\"\nlog_level = \"error\"\n"))
	_, anyPath := createSample(t)

	out, _, err := runApp(t, "--config", cfg, "info", anyPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("info_format from config ignored:\n%s", out)
	}
	if settings.LogLevel != "error" {
		t.Errorf("log level = %q", settings.LogLevel)
	}

	if _, _, err := runApp(t, "--config", filepath.Join(dir, "missing.toml"), "info", anyPath); err == nil {
		t.Error("missing explicit config accepted")
	}

	bad := writeFile(t, dir, "bad.toml", []byte("colour = \"blue\"\n"))
	if _, _, err := runApp(t, "--config", bad, "info", anyPath); err == nil {
		t.Error("unknown config key accepted")
	}

	if _, _, err := runApp(t, "--log-level", "loud", "info", anyPath); err == nil {
		t.Error("invalid --log-level accepted")
	}
}

func TestExtract_StartNeverReturns(t *testing.T) {
	dir := t.TempDir()
	m := wasm.WithMemory(1)
	loop := m.AddFunc(wasm.FuncType{}, wasm.FuncBody{
		Code: []byte{wasm.OpLoop, wasm.BlockEmpty, wasm.OpBr, 0x00, wasm.OpEnd, wasm.OpEnd},
	})
	m.Start = &loop
	raw, err := container.Create(m.Encode(), []byte("payload"), nil).Serialize()
	if err != nil {
		t.Fatal(err)
	}
	anyPath := writeFile(t, dir, "spin.any", raw)
	cfg := writeFile(t, dir, "config.toml", []byte("stage_timeout = \"200ms\"\n"))
	dest := filepath.Join(dir, "out.bin")

	_, errOut, err := runApp(t, "--config", cfg, "extract", "-o", dest, anyPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Errorf("stderr = %q, want an engine warning", errOut)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "payload" {
		t.Errorf("output = %q, %v", got, err)
	}
}
