package metadata_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nikbrunner/marks/internal/metadata"
	"github.com/nikbrunner/marks/internal/metadata/mock"
	"github.com/nikbrunner/marks/internal/model"
)

const page = `<!DOCTYPE html>
<html>
<head>
  <title>  Go &amp; Friends  </title>
  <meta name="description" content="The <b>Go</b> programming language">
  <link rel="shortcut icon" href="/static/icon.png">
</head>
<body><title>not this</title></body>
</html>`

func TestParse(t *testing.T) {
	base, _ := url.Parse("https://go.dev/doc/")

	got, err := metadata.Parse(strings.NewReader(page), base)
	require.NoError(t, err)
	assert.Equal(t, "Go & Friends", got.Title)
	assert.Equal(t, "The <b>Go</b> programming language", got.Description)
	assert.Equal(t, "https://go.dev/static/icon.png", got.Favicon)
}

func TestParse_Fallbacks(t *testing.T) {
	base, _ := url.Parse("https://example.com/a/b")
	doc := `<html><head><meta property="og:description" content="From OG"></head></html>`

	got, err := metadata.Parse(strings.NewReader(doc), base)
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.Equal(t, "From OG", got.Description)
	assert.Equal(t, "https://example.com/favicon.ico", got.Favicon)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(page))
		case "/untitled":
			w.Write([]byte("<html><head></head><body>hi</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := metadata.NewHTTPFetcher(5 * time.Second)

	got, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "Go & Friends", got.Title)
	assert.Equal(t, "The Go programming language", got.Description, "markup is stripped")
	assert.Equal(t, srv.URL+"/static/icon.png", got.Favicon)

	got, err = f.Fetch(context.Background(), srv.URL+"/untitled")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", got.Title, "falls back to the host name")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var statusErr *metadata.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mock.NewMockFetcher(ctrl)

	bookmarks := []model.Bookmark{
		{ID: "1", URL: "https://ok.example"},
		{ID: "2", URL: "https://gone.example"},
		{ID: "3", URL: "https://github.com/private/repo"},
		{ID: "4", URL: "https://down.example"},
		{ID: "5", URL: "https://nohost.example"},
	}

	fetcher.EXPECT().Fetch(gomock.Any(), "https://ok.example").Return(metadata.Page{Title: "OK"}, nil)
	fetcher.EXPECT().Fetch(gomock.Any(), "https://gone.example").Return(metadata.Page{}, &metadata.StatusError{Code: 410})
	fetcher.EXPECT().Fetch(gomock.Any(), "https://github.com/private/repo").Return(metadata.Page{}, &metadata.StatusError{Code: 404})
	fetcher.EXPECT().Fetch(gomock.Any(), "https://down.example").Return(metadata.Page{}, &metadata.StatusError{Code: 503})
	fetcher.EXPECT().Fetch(gomock.Any(), "https://nohost.example").Return(metadata.Page{}, errors.New("dial tcp: lookup nohost.example: no such host"))

	var calls atomic.Int32
	results := metadata.Refresh(context.Background(), fetcher, bookmarks, metadata.RefreshOptions{
		Concurrency:    3,
		ExcludeDomains: []string{"GitHub.com"},
		OnProgress:     func(completed, total int) { calls.Add(1); assert.Equal(t, 5, total) },
	})

	require.Len(t, results, 5)
	assert.Equal(t, int32(5), calls.Load())

	assert.Equal(t, metadata.Healthy, results[0].Status)
	assert.Equal(t, "OK", results[0].Page.Title)
	assert.Equal(t, metadata.Dead, results[1].Status)
	assert.Equal(t, 410, results[1].StatusCode)
	assert.Equal(t, metadata.Unreachable, results[2].Status)
	assert.Equal(t, "Possibly private (auth required)", results[2].Error)
	assert.Equal(t, metadata.Unreachable, results[3].Status)
	assert.Equal(t, "Service Unavailable", results[3].Error)
	assert.Equal(t, metadata.Unreachable, results[4].Status)
	assert.Equal(t, "DNS failure", results[4].Error)
	assert.Equal(t, "5", results[4].Bookmark.ID)
}

func TestRefresh_Empty(t *testing.T) {
	assert.Nil(t, metadata.Refresh(context.Background(), nil, nil, metadata.RefreshOptions{}))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://go.dev", metadata.NormalizeURL("go.dev"))
	assert.Equal(t, "http://go.dev", metadata.NormalizeURL(" http://go.dev "))
	assert.Equal(t, "HTTPS://GO.DEV", metadata.NormalizeURL("HTTPS://GO.DEV"))
	assert.Equal(t, "", metadata.NormalizeURL(""))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "healthy", metadata.Healthy.String())
	assert.Equal(t, "dead", metadata.Dead.String())
	assert.Equal(t, "unreachable", metadata.Unreachable.String())
}
