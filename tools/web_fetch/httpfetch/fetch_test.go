package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Paris facts</title></head>
<body>
<nav>Home | About | Contact</nav>
<article>
<h1>Paris facts</h1>
<p>Paris is the capital and most populous city of France. It has been one of the major centres of finance, diplomacy, commerce, culture, fashion and gastronomy for centuries.</p>
<p>The city is divided by the river Seine into the Left Bank and the Right Bank, and it hosts many world famous museums including the Louvre and the Musee d'Orsay.</p>
<p>Paris is also home to a large number of universities, libraries and research institutions that draw students from across the world every single year.</p>
<p>Visitors often climb the Eiffel Tower, walk along the Champs-Elysees, and spend long afternoons in cafes, parks and gardens such as the Jardin du Luxembourg and the Tuileries, which have inspired painters and writers for generations.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestExecExtractsArticleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected a user agent")
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := New(time.Second, 0)
	res, err := f.Exec(context.Background(), srv.URL+"/paris")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Status)
	}
	if !strings.Contains(res.Text, "capital and most populous city of France") {
		t.Fatalf("expected article text, got %q", res.Text)
	}
}

func TestExecTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := New(time.Second, 20)
	res, err := f.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if n := len([]rune(res.Text)); n > 20 {
		t.Fatalf("expected at most 20 runes, got %d", n)
	}
}

func TestExecErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := New(time.Second, 0)
	res, err := f.Exec(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 410")
	}
	if res.Status != http.StatusGone {
		t.Fatalf("expected status to be reported, got %d", res.Status)
	}

	for _, link := range []string{"", "  ", "ftp://example.com/file"} {
		if _, err := f.Exec(context.Background(), link); err == nil {
			t.Fatalf("expected error for %q", link)
		}
	}
}
