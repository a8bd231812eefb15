package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyKnowledge/internal/domain"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Sample</title>
  <item>
    <title>Oldest story</title>
    <link>https://example.org/oldest</link>
    <description>old</description>
    <pubDate>Mon, 12 Oct 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>  Newest story  </title>
    <link>https://example.org/newest</link>
    <description><![CDATA[<p>Fresh <b>news</b>
      with   markup</p>]]></description>
    <pubDate>Sat, 17 Oct 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Relative link</title>
    <link>/relative</link>
    <pubDate>Sat, 17 Oct 2026 07:00:00 GMT</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://example.org/untitled</link>
    <pubDate>Sat, 17 Oct 2026 06:00:00 GMT</pubDate>
  </item>
  <item>
    <title>FTP story</title>
    <link>ftp://example.org/file</link>
    <pubDate>Sat, 17 Oct 2026 05:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Middle story</title>
    <link>http://example.org/middle</link>
    <pubDate>Thu, 15 Oct 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Second oldest</title>
    <link>https://example.org/second-oldest</link>
    <pubDate>Tue, 13 Oct 2026 08:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestRetrieveKeepsNewestValidItems(t *testing.T) {
	t.Parallel()

	userAgents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	r := NewRetriever(server.Client(), Options{}, nil)
	got, err := r.Retrieve(context.Background(), domain.FeedSource{
		Name:        "Sample Feed",
		EndpointURL: server.URL,
		Category:    domain.CategoryTech,
	})
	require.NoError(t, err)

	assert.Equal(t, "DailyKnowledgeBot/1.0", <-userAgents)
	require.Len(t, got, 3)
	assert.Equal(t, "Newest story", got[0].Title)
	assert.Equal(t, "Fresh news with markup", got[0].ContentSnippet)
	assert.Equal(t, "https://example.org/newest", got[0].URL)
	assert.Equal(t, "Sample Feed", got[0].SourceName)
	require.NotNil(t, got[0].PublishedAt)
	assert.Equal(t, "Middle story", got[1].Title)
	assert.Equal(t, "Second oldest", got[2].Title)
}

func TestRetrieveReturnsAllWhenFewerThanLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>x</title>
<item><title>Only one</title><link>https://example.org/one</link></item>
</channel></rss>`))
	}))
	defer server.Close()

	r := NewRetriever(server.Client(), Options{Limit: 3}, nil)
	got, err := r.Retrieve(context.Background(), domain.FeedSource{Name: "one", EndpointURL: server.URL})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].PublishedAt)
}

func TestRetrieveFailuresAreSourceErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusBadGateway)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("this is not a feed"))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(handler)
			defer server.Close()

			r := NewRetriever(server.Client(), Options{Timeout: 100 * time.Millisecond}, nil)
			got, err := r.Retrieve(context.Background(), domain.FeedSource{Name: "broken", EndpointURL: server.URL})

			require.Error(t, err)
			var srcErr *domain.SourceError
			require.True(t, errors.As(err, &srcErr))
			assert.Equal(t, "broken", srcErr.Source)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestIsValidLink(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidLink("https://example.org/a"))
	assert.True(t, IsValidLink("HTTP://example.org/a"))
	assert.False(t, IsValidLink(""))
	assert.False(t, IsValidLink("/relative"))
	assert.False(t, IsValidLink("httpx://example.org"))
	assert.False(t, IsValidLink("https://"))
	assert.False(t, IsValidLink("mailto:someone@example.org"))
}
