package jar_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jarfang/pkg/cache"
	"github.com/Sumatoshi-tech/jarfang/pkg/classfile/classfiletest"
	"github.com/Sumatoshi-tech/jarfang/pkg/jar"
)

func sampleEntries() []classfiletest.Entry {
	return []classfiletest.Entry{
		classfiletest.Manifest("Main-Class", "com.example.App", "Created-By", "17 (Oracle)"),
		{Name: "com/"},
		{Name: "com/example/"},
		classfiletest.ClassEntry(classfiletest.NewClass("com/example/App").Field("x", "I")),
		{Name: "com/example/readme.txt", Data: []byte("not a class")},
		classfiletest.ClassEntry(classfiletest.NewInterface("com/example/Api")),
		classfiletest.ClassEntry(classfiletest.NewClass("com/example/Base")),
	}
}

func TestProcess_ReadsClassesInOrder(t *testing.T) {
	t.Parallel()

	path := classfiletest.WriteJar(t, "app.jar", sampleEntries()...)

	archive, err := (&jar.Processor{Workers: 2}).Process(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "app.jar", archive.FileName)
	assert.Len(t, archive.SHA256, 64)
	assert.Positive(t, archive.SizeBytes)
	assert.Equal(t, "com.example.App", archive.Manifest.MainClass)
	assert.Equal(t, "17 (Oracle)", archive.Manifest.CreatedBy)
	assert.Empty(t, archive.Skipped)
	assert.False(t, archive.FromCache)

	require.Len(t, archive.Classes, 3)
	assert.Equal(t, "com/example/App", archive.Classes[0].Name)
	assert.Equal(t, 1, archive.Classes[0].FieldCount)
	assert.Equal(t, "com/example/Api", archive.Classes[1].Name)
	assert.True(t, archive.Classes[1].IsInterface)
	assert.Equal(t, "com/example/Base", archive.Classes[2].Name)
}

func TestProcess_SkipsUnreadableClasses(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	entries := append(sampleEntries(),
		classfiletest.Entry{Name: "com/example/Broken.class", Data: []byte{0xca, 0xfe}},
		classfiletest.Entry{Name: "com/example/Empty.class"},
	)
	path := classfiletest.WriteJar(t, "broken.jar", entries...)

	p := &jar.Processor{Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	archive, err := p.Process(context.Background(), path)
	require.NoError(t, err)

	assert.Len(t, archive.Classes, 3)
	require.Len(t, archive.Skipped, 2)
	assert.Equal(t, "com/example/Broken.class", archive.Skipped[0].Name)
	assert.Equal(t, jar.SkipParse, archive.Skipped[0].Reason)
	assert.NotEmpty(t, archive.Skipped[0].Error)
	assert.Equal(t, "com/example/Empty.class", archive.Skipped[1].Name)

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "com/example/Broken.class")
}

func TestProcess_StrictFails(t *testing.T) {
	t.Parallel()

	path := classfiletest.WriteJar(t, "strict.jar",
		classfiletest.Entry{Name: "Bad.class", Data: []byte{1, 2, 3}})

	_, err := (&jar.Processor{Strict: true}).Process(context.Background(), path)
	require.ErrorIs(t, err, jar.ErrBadClass)
	assert.Contains(t, err.Error(), "Bad.class")
}

func TestProcess_SizeLimit(t *testing.T) {
	t.Parallel()

	big := classfiletest.NewClass("com/example/Big")
	for i := range 50 {
		big.Field("f"+string(rune('a'+i%26))+string(rune('a'+i/26)), "I")
	}

	path := classfiletest.WriteJar(t, "big.jar",
		classfiletest.ClassEntry(big),
		classfiletest.ClassEntry(classfiletest.NewClass("S")))

	archive, err := (&jar.Processor{MaxClassSize: 200}).Process(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, archive.Skipped, 1)
	assert.Equal(t, jar.SkipSize, archive.Skipped[0].Reason)
	require.Len(t, archive.Classes, 1)
	assert.Equal(t, "S", archive.Classes[0].Name)
}

func TestProcess_EmptyJar(t *testing.T) {
	t.Parallel()

	path := classfiletest.WriteJar(t, "empty.jar", classfiletest.Manifest())

	archive, err := (&jar.Processor{}).Process(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, archive.Classes)
	assert.True(t, archive.Manifest.IsZero())
}

func TestProcess_NotZip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fake.jar")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, err := (&jar.Processor{}).Process(context.Background(), path)
	require.ErrorIs(t, err, jar.ErrNotZip)
}

func TestProcess_Canceled(t *testing.T) {
	t.Parallel()

	path := classfiletest.WriteJar(t, "app.jar", sampleEntries()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&jar.Processor{}).Process(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcess_Cache(t *testing.T) {
	t.Parallel()

	store := cache.NewClassStore(t.TempDir())
	path := classfiletest.WriteJar(t, "app.jar", sampleEntries()...)
	p := &jar.Processor{Cache: store}

	first, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Classes, second.Classes)
	assert.Equal(t, first.SHA256, second.SHA256)
}

func TestProcess_CacheHonorsSizeLimit(t *testing.T) {
	t.Parallel()

	store := cache.NewClassStore(t.TempDir())
	path := classfiletest.WriteJar(t, "app.jar", sampleEntries()...)

	warm, err := (&jar.Processor{Cache: store}).Process(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, warm.Classes, 3)

	uncached, err := (&jar.Processor{MaxClassSize: 8}).Process(context.Background(), path)
	require.NoError(t, err)

	cached, err := (&jar.Processor{MaxClassSize: 8, Cache: store}).Process(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, cached.FromCache)
	assert.Empty(t, cached.Classes)
	assert.Len(t, cached.Skipped, 3)
	assert.Equal(t, uncached.Skipped, cached.Skipped)

	again, err := (&jar.Processor{Cache: store}).Process(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, warm.Classes, again.Classes)
}

func TestProcess_CacheStrictStillClean(t *testing.T) {
	t.Parallel()

	store := cache.NewClassStore(t.TempDir())
	path := classfiletest.WriteJar(t, "app.jar", sampleEntries()...)

	_, err := (&jar.Processor{Cache: store}).Process(context.Background(), path)
	require.NoError(t, err)

	strict, err := (&jar.Processor{Cache: store, Strict: true}).Process(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, strict.FromCache)
	assert.Empty(t, strict.Skipped)
}

func TestProcess_CacheSkipsPartialArchives(t *testing.T) {
	t.Parallel()

	store := cache.NewClassStore(t.TempDir())
	path := classfiletest.WriteJar(t, "partial.jar",
		classfiletest.ClassEntry(classfiletest.NewClass("A")),
		classfiletest.Entry{Name: "B.class", Data: []byte{0}})
	p := &jar.Processor{Cache: store}

	first, err := p.Process(context.Background(), path)
	require.NoError(t, err)

	_, ok, err := store.Get(first.SHA256)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	upper := filepath.Join(dir, "LIB.JAR")
	require.NoError(t, os.WriteFile(upper, nil, 0o600))

	zipFile := filepath.Join(dir, "lib.zip")
	require.NoError(t, os.WriteFile(zipFile, nil, 0o600))

	jarDir := filepath.Join(dir, "dir.jar")
	require.NoError(t, os.Mkdir(jarDir, 0o755))

	require.NoError(t, jar.ValidateInput(upper))
	require.ErrorIs(t, jar.ValidateInput(filepath.Join(dir, "missing.jar")), jar.ErrInputNotFound)
	require.ErrorIs(t, jar.ValidateInput(jarDir), jar.ErrInputNotFile)
	require.ErrorIs(t, jar.ValidateInput(zipFile), jar.ErrNotJar)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	data := []byte("Manifest-Version: 1.0\r\n" +
		"Implementation-Title: very long\r\n" +
		"  title\r\n" +
		"main-class: a.B\r\n" +
		"\r\n" +
		"Name: a/B.class\r\n" +
		"Implementation-Version: ignored\r\n")

	m := jar.ParseManifest(data)

	assert.Equal(t, "very long title", m.ImplementationTitle)
	assert.Equal(t, "a.B", m.MainClass)
	assert.Empty(t, m.ImplementationVersion)
}

func TestParseManifest_WrappedValueKeepsSpaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, data, want string
	}{
		{"space before wrap", "Implementation-Title: Apache Commons \r\n Lang\r\n", "Apache Commons Lang"},
		{"wrap mid word", "Implementation-Title: Apache Com\r\n mons Lang\r\n", "Apache Commons Lang"},
		{"no space after colon", "Implementation-Title:Lang\r\n", "Lang"},
		{"extra space kept", "Implementation-Title:  Lang\n", " Lang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, jar.ParseManifest([]byte(tt.data)).ImplementationTitle)
		})
	}
}
