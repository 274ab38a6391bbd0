package zbxchart

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireFileContent(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.Equal(want, got), "file %s: got %d bytes, want %d", path, len(got), len(want))
}

func newTestSession(t *testing.T, f *frontend, opts ...Option) *ChartSession {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := Connect(context.Background(), Settings{BaseURL: f.baseURL()}, Env{}, opts...)
	require.NoError(t, err)
	return s
}

func TestGetByGraphIDSavesFile(t *testing.T) {
	image := testImage(2*CHUNK_SIZE + 1234)
	f := newFrontend(t, image)
	s := newTestSession(t, f)

	out := t.TempDir()
	require.NoError(t, s.GetByGraphID(context.Background(), "42", ChartOptions{Save: true, OutputPath: out}))
	requireFileContent(t, filepath.Join(out, "graph-42.png"), image)
}

func TestGetByGraphIDTruncatesExistingFile(t *testing.T) {
	image := testImage(100)
	f := newFrontend(t, image)
	s := newTestSession(t, f)

	out := t.TempDir()
	path := filepath.Join(out, GraphFilename("5"))
	require.NoError(t, os.WriteFile(path, testImage(5000), 0o644))

	require.NoError(t, s.GetByGraphID(context.Background(), "5", ChartOptions{Save: true, OutputPath: out}))
	requireFileContent(t, path, image)
}

func TestGetByGraphIDSavesToWorkingDirectory(t *testing.T) {
	image := testImage(CHUNK_SIZE)
	f := newFrontend(t, image)
	s := newTestSession(t, f)

	wd := t.TempDir()
	prevWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	result, err := s.FetchGraph(context.Background(), "9", ChartOptions{Save: true})
	require.NoError(t, err)
	require.Equal(t, int64(len(image)), result.Bytes)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cwd, "graph-9.png"), result.Path)
	requireFileContent(t, result.Path, image)
}

func TestGetByGraphIDStreamsToStdout(t *testing.T) {
	image := testImage(3*CHUNK_SIZE + 5)
	f := newFrontend(t, image)

	var out bytes.Buffer
	s := newTestSession(t, f, WithStdout(&out))

	require.NoError(t, s.GetByGraphID(context.Background(), "1", ChartOptions{}))
	require.True(t, bytes.Equal(image, out.Bytes()))
}

func TestGetByGraphIDPassesLoginPageThrough(t *testing.T) {
	page := []byte("<html><form action=\"index.php\">login</form></html>")
	f := newFrontend(t, page)

	var out bytes.Buffer
	s := newTestSession(t, f, WithStdout(&out))

	require.NoError(t, s.GetByGraphID(context.Background(), "1", ChartOptions{}))
	require.Equal(t, page, out.Bytes())
}

func TestGetByGraphIDQuery(t *testing.T) {
	f := newFrontend(t, testImage(1))
	s := newTestSession(t, f, WithStdout(io.Discard))

	require.NoError(t, s.GetByGraphID(context.Background(), "42", ChartOptions{}))
	require.NoError(t, s.GetByGraphID(context.Background(), "43", ChartOptions{
		From:   "2019-08-03 16:20:04",
		To:     "now-1h",
		Width:  "800",
		Height: "200",
	}))

	queries, _ := f.graphRequests()
	require.Equal(t, []string{
		"graphid=42&from=now-1d&to=now&profileIdx=web.graphs.filter&width=1782&height=452",
		"graphid=43&from=2019-08-03+16%3A20%3A04&to=now-1h&profileIdx=web.graphs.filter&width=800&height=200",
	}, queries)
}

func TestGetByGraphIDMissingOutputDirectory(t *testing.T) {
	f := newFrontend(t, testImage(10))
	s := newTestSession(t, f)

	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	err := s.GetByGraphID(context.Background(), "3", ChartOptions{Save: true, OutputPath: missing})
	require.Error(t, err)

	var pathErr *fs.PathError
	require.True(t, errors.As(err, &pathErr), "expected *fs.PathError, got %T", err)
}

func TestWriteGraphReportsBytes(t *testing.T) {
	image := testImage(12345)
	f := newFrontend(t, image)
	s := newTestSession(t, f)

	var buf bytes.Buffer
	n, err := s.WriteGraph(context.Background(), "11", ChartOptions{}, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(len(image)), n)
	require.Equal(t, image, buf.Bytes())
}

func TestGraphURL(t *testing.T) {
	s, err := NewChartSession(Settings{BaseURL: "https://zbx.example.com/zabbix"})
	require.NoError(t, err)

	require.Equal(t,
		"https://zbx.example.com/zabbix/chart2.php?graphid=42&from=now-1d&to=now&profileIdx=web.graphs.filter&width=1782&height=452",
		s.GraphURL("42", ChartOptions{}))
}

// trickleReader hands out data in small reads with empty reads in between
type trickleReader struct {
	data  []byte
	step  int
	calls int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	r.calls++
	if r.calls%3 == 0 {
		return 0, nil
	}
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p[:min(len(p), r.step)], r.data)
	r.data = r.data[n:]
	return n, nil
}

// chunkRecorder keeps the size of every Write call
type chunkRecorder struct {
	bytes.Buffer
	sizes []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return c.Buffer.Write(p)
}

func TestCopyChunks(t *testing.T) {
	s, err := NewChartSession(Settings{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	data := testImage(2*CHUNK_SIZE + 3000)
	var dst chunkRecorder
	n, err := s.copyChunks(&dst, &trickleReader{data: data, step: 700}, "test")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, data, dst.Bytes())
	require.Equal(t, []int{CHUNK_SIZE, CHUNK_SIZE, 3000}, dst.sizes)
}

func TestCopyChunksEmptyBody(t *testing.T) {
	s, err := NewChartSession(Settings{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	var dst chunkRecorder
	n, err := s.copyChunks(&dst, bytes.NewReader(nil), "test")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, dst.sizes)
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestCopyChunksKeepsPartialOutputOnError(t *testing.T) {
	s, err := NewChartSession(Settings{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	boom := errors.New("connection reset")
	data := testImage(CHUNK_SIZE + 10)
	var dst chunkRecorder
	n, err := s.copyChunks(&dst, &failingReader{data: data, err: boom}, "test")
	require.ErrorIs(t, err, boom)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, data, dst.Bytes())
}

func TestGetByItemIDsNotImplemented(t *testing.T) {
	f := newFrontend(t, nil)
	s := newTestSession(t, f)

	inputs := []struct {
		ids  []string
		opts ItemChartOptions
	}{
		{nil, ItemChartOptions{}},
		{[]string{"10001"}, ItemChartOptions{Type: GRAPH_TYPE_NORMAL}},
		{[]string{"10001", "10002"}, ItemChartOptions{ChartOptions: ChartOptions{Save: true, OutputPath: t.TempDir()}, Type: GRAPH_TYPE_STACKED}},
	}
	for _, in := range inputs {
		err := s.GetByItemIDs(context.Background(), in.ids, in.opts)
		require.ErrorIs(t, err, ErrNotImplemented)
	}

	_, cookies := f.graphRequests()
	require.Empty(t, cookies)
}

func TestValidateTimesAcceptsEverything(t *testing.T) {
	for _, r := range [][2]string{{"now-1d", "now"}, {"2019-08-03 16:20:04", "now"}, {"", ""}, {"garbage", "more garbage"}} {
		require.NoError(t, validateTimes(r[0], r[1]))
	}
}
