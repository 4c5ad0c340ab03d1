package console_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoriz/internal/console"
	"motoriz/internal/core"
	"motoriz/internal/seed"
)

var fixedNow = time.Date(2025, 10, 6, 2, 0, 0, 0, time.UTC)

// script answers prompts from a fixed list and then reports end of input.
type script struct {
	lines   []string
	prompts []string
}

func (s *script) Prompt(p string) (string, error) {
	s.prompts = append(s.prompts, p)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newConsole(t *testing.T, lines ...string) (*console.Console, *core.Service, *bytes.Buffer, *script) {
	t.Helper()
	data, err := seed.Default()
	require.NoError(t, err)
	svc, err := core.NewInMemoryService(context.Background(), core.WithSeed(data),
		core.WithClock(core.ClockFunc(func() time.Time { return fixedNow })))
	require.NoError(t, err)
	in := &script{lines: lines}
	var out bytes.Buffer
	c := console.New(svc, console.Options{Prompter: in, Out: &out, ExportDir: t.TempDir()})
	return c, svc, &out, in
}

func TestListAndSearch(t *testing.T) {
	c, _, out, _ := newConsole(t)
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "list"))
	assert.Contains(t, out.String(), "Maxxis Victra")
	assert.Contains(t, out.String(), "Nama Produk")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "search helm"))
	assert.Contains(t, out.String(), "Helm Safety Pro")
	assert.NotContains(t, out.String(), "Maxxis Victra")
	assert.Contains(t, out.String(), `1 match "helm"`)
}

func TestUseSwitchesCollection(t *testing.T) {
	c, _, out, _ := newConsole(t)
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "use services"))
	assert.Equal(t, core.ResourceServices, c.Current())
	require.NoError(t, c.Exec(ctx, "list"))
	assert.Contains(t, out.String(), "Tune Up Mesin - Paket Lengkap")
	assert.Contains(t, out.String(), "Tidak Tersedia")

	assert.Error(t, c.Exec(ctx, "use garage"))
	assert.Equal(t, core.ResourceServices, c.Current())
}

func TestAddSaveFlow(t *testing.T) {
	c, svc, out, _ := newConsole(t)
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "add"))
	assert.Equal(t, "motoriz products [add]> ", c.PromptLabel())
	require.NoError(t, c.Exec(ctx, "set name Kampas Rem Depan"))
	require.NoError(t, c.Exec(ctx, "set categoryId 4"))
	require.NoError(t, c.Exec(ctx, "set price 85000"))
	require.NoError(t, c.Exec(ctx, "set stock 3"))

	require.NoError(t, c.Exec(ctx, "save"))
	assert.Contains(t, out.String(), "images", "missing image is reported")
	assert.Equal(t, 8, svc.Products.Len())
	assert.Equal(t, "motoriz products [add]> ", c.PromptLabel(), "dialog stays open")

	require.NoError(t, c.Exec(ctx, "set images rem.jpg"))
	require.NoError(t, c.Exec(ctx, "save"))
	assert.Contains(t, out.String(), "saved products 9")
	p, ok := svc.Products.Get(9)
	require.True(t, ok)
	assert.Equal(t, "Kampas Rem Depan", p.Name)
	assert.Equal(t, int64(85000), p.Price)
	assert.Equal(t, "motoriz products> ", c.PromptLabel())
}

func TestEditAndCancel(t *testing.T) {
	c, svc, out, _ := newConsole(t)
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "edit 2"))
	assert.Contains(t, out.String(), "Maxxis Victra")
	assert.Equal(t, "motoriz products [edit 2]> ", c.PromptLabel())
	assert.Error(t, c.Exec(ctx, "use news"), "open dialog blocks switching")

	require.NoError(t, c.Exec(ctx, "set stock 40"))
	require.NoError(t, c.Exec(ctx, "cancel"))
	p, _ := svc.Products.Get(2)
	assert.Equal(t, int64(22), p.Stock)

	assert.Error(t, c.Exec(ctx, "edit 99"))
	assert.Error(t, c.Exec(ctx, "edit abc"))
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	c, svc, out, in := newConsole(t, "no", "ya")
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "delete 3"))
	assert.Contains(t, out.String(), "not deleted")
	assert.Equal(t, 8, svc.Products.Len())

	require.NoError(t, c.Exec(ctx, "delete 3"))
	assert.Equal(t, 7, svc.Products.Len())
	require.Len(t, in.prompts, 2)
	assert.Contains(t, in.prompts[0], "(yes/no)")
}

func TestDeleteCategoryReportsOrphans(t *testing.T) {
	c, svc, out, _ := newConsole(t, "y")
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "use categories"))
	require.NoError(t, c.Exec(ctx, "delete 2"))
	_, ok := svc.Categories.Get(2)
	assert.False(t, ok)
	require.NoError(t, c.Exec(ctx, "orphans"))
	assert.Contains(t, out.String(), "Maxxis Victra")
}

func TestExportWritesCSV(t *testing.T) {
	c, _, out, _ := newConsole(t)
	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "produk.csv")
	require.NoError(t, c.Exec(ctx, "search accu"))
	require.NoError(t, c.Exec(ctx, "export "+target))
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "GS Astra Premium N50")
	assert.Contains(t, out.String(), "wrote 1 rows")

	require.NoError(t, c.Exec(ctx, "use categories"))
	assert.Error(t, c.Exec(ctx, "export"))
}

func TestDashboardAndSessionMirror(t *testing.T) {
	data, err := seed.Default()
	require.NoError(t, err)
	svc, err := core.NewInMemoryService(context.Background(), core.WithSeed(data))
	require.NoError(t, err)
	file := &console.SessionFile{Path: filepath.Join(t.TempDir(), "nested", "session.json")}
	var out bytes.Buffer
	c := console.New(svc, console.Options{
		Prompter: &script{lines: []string{"yes"}},
		Out:      &out,
		Session:  file,
		State:    console.SessionState{Server: "http://localhost:8080", Token: "abc"},
	})
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "dashboard"))
	assert.Contains(t, out.String(), "Total Produk    8")
	assert.Contains(t, out.String(), "Hub Motor 1500W")

	require.NoError(t, c.Exec(ctx, "delete 1"))
	st, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", st.Token)
	require.NotNil(t, st.Dashboard)
	assert.Equal(t, 7, st.Dashboard.TotalProducts)

	info, err := os.Stat(file.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, file.Clear())
	st, err = file.Load()
	require.NoError(t, err)
	assert.Empty(t, st.Token)
}

func TestRunStopsOnQuitAndEOF(t *testing.T) {
	c, _, out, _ := newConsole(t, "help", "bogus", "quit", "list")
	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, out.String(), "export [file]")
	assert.Contains(t, out.String(), `unknown command "bogus"`)
	assert.NotContains(t, out.String(), "Maxxis Victra", "commands after quit are not read")

	c, _, _, in := newConsole(t, "list")
	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, in.prompts, 2)
}

func TestCompletions(t *testing.T) {
	c, _, _, _ := newConsole(t)
	assert.ElementsMatch(t, []string{"search", "set", "show", "save"}, c.Completions("s"))
	assert.Equal(t, []string{"use products", "use product-types"}, c.Completions("use prod"))
	names := make([]string, 0)
	for _, f := range c.Fields() {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "categoryId")
}
