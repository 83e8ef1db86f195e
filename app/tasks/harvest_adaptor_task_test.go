package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/database"
	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/playlist"
	"github.com/lysyi3m/request-hub/app/request"
)

type testEnv struct {
	db       *database.DB
	requests *database.RequestRepository
	history  *harvest.History
	registry *adaptor.Registry
	builder  *playlist.Builder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	requests := database.NewRequestRepository(db)
	return &testEnv{
		db:       db,
		requests: requests,
		history:  harvest.NewHistory(database.NewHarvestRepository(db)),
		registry: adaptor.NewRegistry(database.NewAdaptorRepository(db), adaptor.NewKeyIssuer(nil)),
		builder:  playlist.NewBuilder(database.NewPlaylistRepository(db)),
	}
}

const pageHTML = `<html><body><article>
<h1>Clinic hours</h1>
<p>The district clinic opens at eight in the morning and closes at six in the evening on weekdays.</p>
<p>On weekends the clinic runs a reduced service with a single nurse on duty for emergencies only.</p>
<p>Residents are asked to bring their health cards and to arrive early during the vaccination campaign.</p>
</article></body></html>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Requests</title>
<item><title>Water</title><guid>1</guid><description>Why is water expensive?</description><pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate></item>
<item><title>Spam offer</title><guid>2</guid><description>Buy now</description><pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate></item>
<item><title>Clinic</title><guid>3</guid><link>%s/page</link><pubDate>Mon, 03 Jul 2023 12:00:00 GMT</pubDate></item>
</channel></rss>`, server.URL)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageHTML)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestConfig(url string) *adaptor.Config {
	return &adaptor.Config{
		Name:    "sms",
		Source:  "sms gateway",
		Trusted: true,
		URL:     url,
		Settings: adaptor.ConfigSettings{
			Enabled:        true,
			MaxItems:       10,
			Timeout:        5,
			ExtractContent: true,
		},
		Defaults: adaptor.ConfigDefaults{
			ContentType:   request.ContentTypeTranscribed,
			ContentFormat: request.ContentFormatAudio,
			World:         request.WorldOffline,
			Language:      "sw",
			Topic:         "health",
		},
		Filters: []feed.Filter{{Field: "title", Excludes: []string{"spam"}}},
	}
}

func newHarvestTask(env *testEnv, config *adaptor.Config) *HarvestAdaptorTask {
	return NewHarvestAdaptorTask(config, NewFetcher(nil, "request-hub-test"), feed.NewParser(), feed.NewFilterer(),
		feed.NewContentExtractor(), env.requests, env.history)
}

func TestHarvestAdaptorTask(t *testing.T) {
	env := newTestEnv(t)
	server := newFeedServer(t)
	config := newTestConfig(server.URL + "/feed.xml")
	ctx := context.Background()

	if err := newHarvestTask(env, config).Execute(ctx); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	reqs, err := env.requests.FetchCDSRequests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(reqs))
	}

	clinic, water := reqs[0], reqs[1]
	if water.TextContent() != "Why is water expensive?" {
		t.Errorf("Unexpected text: %q", water.TextContent())
	}
	if !strings.Contains(clinic.TextContent(), "district clinic opens") {
		t.Errorf("Expected extracted page text, got: %q", clinic.TextContent())
	}
	if water.AdaptorName != "sms" || !water.AdaptorTrusted || water.ContentFormat != request.ContentFormatAudio {
		t.Errorf("Expected adaptor defaults applied, got %+v", water)
	}
	if water.Language() != "sw" || water.Topic() != "health" || water.ContentLanguage() != "" {
		t.Errorf("Expected default content fields, got %q/%q/%q", water.Language(), water.Topic(), water.ContentLanguage())
	}
	if !water.Posted.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected posted from item date, got %v", water.Posted)
	}

	last, _ := env.history.GetTimestamp(ctx, config)
	if last.Equal(harvest.Epoch) {
		t.Error("Expected harvest to be recorded")
	}

	// Items are already harvested and older than the recorded harvest now.
	if err := newHarvestTask(env, config).Execute(ctx); err != nil {
		t.Fatal(err)
	}
	count, _ := env.requests.GetRequestCount(ctx)
	if count != 2 {
		t.Errorf("Expected no new requests on second harvest, got %d total", count)
	}
}

func TestHarvestAdaptorTaskSkipsDisabled(t *testing.T) {
	env := newTestEnv(t)
	config := newTestConfig("http://127.0.0.1:0/feed.xml")
	config.Settings.Enabled = false

	if err := newHarvestTask(env, config).Execute(context.Background()); err != nil {
		t.Fatalf("Expected disabled adaptor to be skipped, got: %v", err)
	}
}

func TestHarvestAdaptorTaskFetchError(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	config := newTestConfig(server.URL + "/feed.xml")
	if err := newHarvestTask(env, config).Execute(context.Background()); err == nil {
		t.Error("Expected error for failed fetch")
	}

	last, _ := env.history.GetTimestamp(context.Background(), config)
	if !last.Equal(harvest.Epoch) {
		t.Error("Expected no harvest recorded after failure")
	}
}

func newStaticFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func requestTexts(t *testing.T, env *testEnv) map[string]int {
	t.Helper()
	reqs, err := env.requests.FetchCDSRequests(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	texts := make(map[string]int)
	for _, r := range reqs {
		texts[r.TextContent()]++
	}
	return texts
}

func TestHarvestAdaptorTaskMaxItemsCarriesOver(t *testing.T) {
	env := newTestEnv(t)
	server := newStaticFeedServer(t, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Requests</title>
<item><title>F</title><guid>f</guid><description>f text</description><pubDate>Fri, 01 Jan 2100 00:00:00 GMT</pubDate></item>
<item><title>A</title><guid>a</guid><description>a text</description><pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate></item>
<item><title>B</title><guid>b</guid><description>b text</description><pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate></item>
</channel></rss>`)
	config := newTestConfig(server.URL)
	config.Settings.MaxItems = 2
	ctx := context.Background()

	if err := newHarvestTask(env, config).Execute(ctx); err != nil {
		t.Fatal(err)
	}
	if last, _ := env.history.GetTimestamp(ctx, config); !last.Equal(harvest.Epoch) {
		t.Error("Expected harvest time to stay put while items are left behind")
	}

	for i := 0; i < 2; i++ {
		if err := newHarvestTask(env, config).Execute(ctx); err != nil {
			t.Fatal(err)
		}
	}

	texts := requestTexts(t, env)
	if len(texts) != 3 {
		t.Errorf("Expected 3 distinct requests, got %v", texts)
	}
	for _, text := range []string{"f text", "a text", "b text"} {
		if texts[text] != 1 {
			t.Errorf("Expected exactly one request for %q, got %d", text, texts[text])
		}
	}
	if last, _ := env.history.GetTimestamp(ctx, config); last.Equal(harvest.Epoch) {
		t.Error("Expected harvest to be recorded once the feed was drained")
	}
}

func TestHarvestAdaptorTaskSkipsSeenItems(t *testing.T) {
	env := newTestEnv(t)
	server := newStaticFeedServer(t, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Requests</title>
<item><title>Undated</title><guid>u</guid><description>undated text</description></item>
<item><title>Future</title><guid>f</guid><description>future text</description><pubDate>Fri, 01 Jan 2100 00:00:00 GMT</pubDate></item>
</channel></rss>`)
	config := newTestConfig(server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := newHarvestTask(env, config).Execute(ctx); err != nil {
			t.Fatal(err)
		}
	}

	texts := requestTexts(t, env)
	if len(texts) != 2 || texts["undated text"] != 1 || texts["future text"] != 1 {
		t.Errorf("Expected each item harvested once, got %v", texts)
	}
}

func TestHarvestAdaptorTaskSeenItemsArePerAdaptor(t *testing.T) {
	env := newTestEnv(t)
	server := newStaticFeedServer(t, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Requests</title>
<item><title>Shared</title><guid>s</guid><description>shared text</description></item>
</channel></rss>`)
	ctx := context.Background()

	first := newTestConfig(server.URL)
	second := newTestConfig(server.URL)
	second.Name = "radio"

	for _, config := range []*adaptor.Config{first, second, first} {
		if err := newHarvestTask(env, config).Execute(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if texts := requestTexts(t, env); texts["shared text"] != 2 {
		t.Errorf("Expected one request per adaptor, got %d", texts["shared text"])
	}
}

func TestIsNewItem(t *testing.T) {
	since := time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC)

	if !isNewItem(feed.Item{PublishedAt: since.Add(time.Second)}, since) {
		t.Error("Expected later item to be new")
	}
	if isNewItem(feed.Item{PublishedAt: since}, since) {
		t.Error("Expected item at harvest time to be stale")
	}
	if !isNewItem(feed.Item{}, since) {
		t.Error("Expected undated item to be eligible after the first harvest")
	}
	if !isNewItem(feed.Item{}, harvest.Epoch) {
		t.Error("Expected undated item to be new on first harvest")
	}
}
