package feed

import (
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Rainfall report</title></head>
<body>
	<header><nav>Home | Archive | Contact</nav></header>
	<article>
		<h1>Rainfall report for the valley</h1>
		<p>The valley received more rain this week than in the whole of last month, according to the regional weather office.</p>
		<p>Farmers in the lower districts said the rain arrived in time for planting, though several roads were closed after flooding.</p>
		<p>The weather office expects drier conditions next week, with temperatures returning to seasonal averages by the weekend.</p>
	</article>
	<footer><p>Copyright 2024 Valley News</p></footer>
	<script>var tracking = "should not appear";</script>
</body>
</html>`

func TestContentExtractor_ExtractsArticleText(t *testing.T) {
	result, err := NewContentExtractor().Run([]byte(articlePage), "https://example.com/rain")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "more rain this week") {
		t.Errorf("Expected article text, got: %q", result)
	}
	if strings.Contains(result, "<p>") {
		t.Error("Expected markup to be removed")
	}
	if strings.Contains(result, "should not appear") {
		t.Error("Expected scripts to be removed")
	}
	if strings.Contains(result, "\n") {
		t.Error("Expected whitespace to be collapsed")
	}
}

func TestContentExtractor_WithoutPageURL(t *testing.T) {
	result, err := NewContentExtractor().Run([]byte(articlePage), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(result, "weather office") {
		t.Errorf("Expected article text, got: %q", result)
	}
}

func TestContentExtractor_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	for _, data := range [][]byte{nil, {}} {
		result, err := extractor.Run(data, "")
		if err == nil {
			t.Fatal("Expected error for empty data")
		}
		if err.Error() != "HTML data is empty" {
			t.Errorf("Unexpected error message: %s", err.Error())
		}
		if result != "" {
			t.Error("Expected empty result for empty data")
		}
	}
}

func TestContentExtractor_InvalidPageURL(t *testing.T) {
	if _, err := NewContentExtractor().Run([]byte(articlePage), "://bad url"); err == nil {
		t.Error("Expected error for invalid page URL")
	}
}
