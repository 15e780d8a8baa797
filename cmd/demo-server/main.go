package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "Port to run the demo server on")
	host := flag.String("host", "localhost", "Host to bind the demo server to")
	flag.Parse()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", *host, *port),
		Handler:           createHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		base := fmt.Sprintf("http://%s:%d", *host, *port)
		log.Printf("Demo server starting on %s", base)
		log.Printf("RSS feed available at: %s/rss", base)
		log.Printf("Articles available at: %s/articles/[1-%d]", base, len(demoArticles))
		log.Printf("Mock AI gateway: IDEAFORGE_AI_BASE_URL=%s/v1 IDEAFORGE_AI_API_KEY=demo", base)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down demo server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Demo server stopped")
}

func createHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", rssHandler)
	mux.HandleFunc("/articles/", articlesHandler)
	mux.HandleFunc("/v1/chat/completions", chatHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			homeHandler(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
	return mux
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return strings.TrimSuffix(fmt.Sprintf("%s://%s", scheme, r.Host), "/")
}

func homeHandler(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>IdeaForge Demo Server</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        .endpoint { background: #f3f4f6; padding: 10px; border-radius: 5px; margin: 10px 0; }
        .url { color: #b45309; font-family: monospace; }
    </style>
</head>
<body>
    <h1>IdeaForge Demo Server</h1>
    <p>Mock news feed and AI gateway for trying the pipeline offline.</p>

    <div class="endpoint">
        <strong>RSS Feed:</strong> <a href="%[1]s/rss" class="url">%[1]s/rss</a>
    </div>
    <div class="endpoint">
        <strong>Chat completions:</strong> <span class="url">POST %[1]s/v1/chat/completions</span>
    </div>

    <h2>Usage</h2>
    <pre><code>export IDEAFORGE_AI_BASE_URL=%[1]s/v1
export IDEAFORGE_AI_API_KEY=demo
ideaforge fetch
ideaforge generate</code></pre>
    <p>Add <code>%[1]s/rss</code> to <code>rss.sources</code> in your config first.</p>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, html, baseURL(r))
}
