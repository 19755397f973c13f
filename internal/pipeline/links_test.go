package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRefsResolvesAndPartitions(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="/about">About</a>
		<a href="https://other.example.org/page">External</a>
		<a href="reports/q3.pdf">Quarterly report</a>
		<img src="/img/chart.png">
		<img src="https://cdn.example.com/logo.svg">
	</body></html>`)

	refs, err := ExtractRefs("https://example.com/news/", body)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/about",
		"https://other.example.org/page",
	}, refs.Links)
	assert.Equal(t, []string{
		"https://example.com/news/reports/q3.pdf",
		"https://example.com/img/chart.png",
		"https://cdn.example.com/logo.svg",
	}, refs.Assets)
}

func TestExtractRefsSkipsNonHTTPAndFragments(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="#section">Jump</a>
		<a href="mailto:team@example.com">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a href="ftp://example.com/file">FTP</a>
		<a href="">Empty</a>
		<a href="/ok">OK</a>
	</body></html>`)

	refs, err := ExtractRefs("https://example.com/", body)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/ok"}, refs.Links)
	assert.Empty(t, refs.Assets)
}

func TestExtractRefsDeduplicates(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="/page">One</a>
		<a href="/page">Two</a>
		<img src="/pic.png">
		<img src="/pic.png">
	</body></html>`)

	refs, err := ExtractRefs("https://example.com/", body)
	require.NoError(t, err)
	assert.Len(t, refs.Links, 1)
	assert.Len(t, refs.Assets, 1)
}

func TestExtractRefsStripsFragmentsFromResolved(t *testing.T) {
	t.Parallel()

	body := []byte(`<a href="/doc#part-3">Doc</a>`)
	refs, err := ExtractRefs("https://example.com/", body)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/doc"}, refs.Links)
}

func TestExtractRefsPDFAnchorsAreAssets(t *testing.T) {
	t.Parallel()

	body := []byte(`<a href="/files/Report.PDF">Report</a>`)
	refs, err := ExtractRefs("https://example.com/", body)
	require.NoError(t, err)
	assert.Empty(t, refs.Links)
	assert.Equal(t, []string{"https://example.com/files/Report.PDF"}, refs.Assets)
}

func TestExtractRefsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := ExtractRefs("://bad", []byte("<html></html>"))
	assert.Error(t, err)
}
