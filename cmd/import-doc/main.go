package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	wl "github.com/abadojack/whatlanggo"
	pdf "github.com/dslipak/pdf"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/net/html"

	"github.com/josinaldojr/landing-rag/internal/config"
	"github.com/josinaldojr/landing-rag/internal/db"
	"github.com/josinaldojr/landing-rag/internal/llm"
	"github.com/josinaldojr/landing-rag/internal/rag"
)

func main() {
	_ = godotenv.Load()

	fromFiles := flag.Bool("from-files", false, "import local files (.md/.txt/.html/.pdf)")
	pathFlag := flag.String("path", "", "base directory for local files")
	fromURL := flag.Bool("from-url", false, "import via HTTP crawl")
	baseURLFlag := flag.String("base-url", "", "base URL for the crawl")
	maxPagesFlag := flag.Int("max-pages", 50, "page limit for the HTTP crawl")
	flag.Parse()

	if !*fromFiles && !*fromURL {
		log.Fatal("use at least one mode: --from-files or --from-url")
	}

	ctx := context.Background()
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pool := db.NewPool(cfg.DatabaseURL)
	defer pool.Close()

	repo := rag.NewPgRepository(pool)

	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("failed to init Gemini client: %v", err)
	}

	store, err := rag.NewStore(ctx, repo, geminiClient, cfg.CollectionName, logger)
	if err != nil {
		log.Fatalf("failed to open collection: %v", err)
	}

	service := rag.NewService(
		store,
		rag.NewRetriever(store),
		rag.NewStreamer(geminiClient, logger),
		logger,
	)

	if *fromFiles {
		if *pathFlag == "" {
			log.Fatal("--path is required with --from-files")
		}
		if err := importFromFiles(ctx, service, *pathFlag); err != nil {
			log.Fatalf("error importing files: %v", err)
		}
	}

	if *fromURL {
		if *baseURLFlag == "" {
			log.Fatal("--base-url is required with --from-url")
		}
		if err := importFromHTTP(ctx, service, *baseURLFlag, *maxPagesFlag); err != nil {
			log.Fatalf("error importing HTTP: %v", err)
		}
	}

	if count, err := service.DocumentCount(ctx); err == nil {
		log.Printf("import finished, collection %s now holds %d documents", cfg.CollectionName, count)
	} else {
		log.Printf("import finished (count unavailable: %v)", err)
	}
}

func importFromFiles(ctx context.Context, service *rag.Service, rootPath string) error {
	log.Printf("importing local docs from %s", rootPath)

	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isTextFile(path) {
			return nil
		}

		lpath := strings.ToLower(path)
		var content string

		switch {
		case strings.HasSuffix(lpath, ".pdf"):
			text, err := extractTextFromPDF(path)
			if err != nil {
				return fmt.Errorf("reading pdf %s: %w", path, err)
			}
			content = text

		case strings.HasSuffix(lpath, ".html") || strings.HasSuffix(lpath, ".htm"):
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			content = extractMainText(string(data))

		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			content = string(data)
		}

		content = strings.TrimSpace(content)
		content = sanitizeUTF8(content)
		if content == "" {
			return nil
		}

		return chunkAndIngest(ctx, service, path, content)
	})
}

func importFromHTTP(ctx context.Context, service *rag.Service, baseURL string, maxPages int) error {
	log.Printf("HTTP crawl: base=%s maxPages=%d", baseURL, maxPages)

	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base-url: %w", err)
	}

	visited := make(map[string]bool)
	queue := []string{base.String()}
	pages := 0

	for len(queue) > 0 && pages < maxPages {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true
		pages++

		log.Printf("fetching %s", current)
		resp, err := http.Get(current)
		if err != nil {
			log.Printf("GET %s failed: %v", current, err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("status %d at %s", resp.StatusCode, current)
			resp.Body.Close()
			continue
		}

		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("reading body of %s failed: %v", current, err)
			continue
		}

		htmlStr := string(bodyBytes)
		text := extractMainText(htmlStr)
		text = strings.TrimSpace(text)
		text = sanitizeUTF8(text)
		if text != "" {
			if err := chunkAndIngest(ctx, service, current, text); err != nil {
				log.Printf("ingesting chunks of %s failed: %v", current, err)
			}
		}

		for _, link := range extractLinks(htmlStr, base) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	return nil
}

// chunkAndIngest splits one source into chunks and ingests them under
// deterministic ids, so re-importing the same source upserts in place
// instead of duplicating.
func chunkAndIngest(ctx context.Context, service *rag.Service, source, content string) error {
	const maxLen = 2000

	chunks := splitIntoChunks(content, maxLen)
	if len(chunks) == 0 {
		return nil
	}

	info := wl.Detect(content)
	log.Printf("importing %s: %d chunk(s), language=%s (confidence %.2f)",
		source, len(chunks), wl.LangToString(info.Lang), info.Confidence)

	ids := make([]string, 0, len(chunks))
	for i := range chunks {
		ids = append(ids, chunkID(source, i))
	}

	return service.Ingest(ctx, chunks, ids)
}

// chunkID derives a stable UUID from the source path/URL and chunk index.
func chunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}

func isTextFile(path string) bool {
	l := strings.ToLower(path)
	return strings.HasSuffix(l, ".md") ||
		strings.HasSuffix(l, ".txt") ||
		strings.HasSuffix(l, ".html") ||
		strings.HasSuffix(l, ".htm") ||
		strings.HasSuffix(l, ".pdf")
}

func extractMainText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node, bool)

	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				skip = true
			}
		}

		if n.Type == html.TextNode && !skip {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	lines := strings.Split(b.String(), "\n")
	var filtered []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" && len(l) > 1 {
			filtered = append(filtered, l)
		}
	}
	return strings.Join(filtered, "\n")
}

func extractLinks(htmlStr string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}
	var links []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" {
					h := strings.TrimSpace(a.Val)
					if h == "" || strings.HasPrefix(h, "#") {
						continue
					}
					u, err := url.Parse(h)
					if err != nil {
						continue
					}
					u = base.ResolveReference(u)

					if u.Host != base.Host {
						continue
					}

					if strings.HasSuffix(u.Path, ".css") ||
						strings.HasSuffix(u.Path, ".js") ||
						strings.HasSuffix(u.Path, ".png") ||
						strings.HasSuffix(u.Path, ".jpg") ||
						strings.HasSuffix(u.Path, ".svg") {
						continue
					}

					link := u.Scheme + "://" + u.Host + u.Path
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	seen := make(map[string]bool)
	var out []string
	for _, l := range links {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func splitIntoChunks(content string, maxLen int) []string {
	content = strings.TrimSpace(content)
	content = sanitizeUTF8(content)
	if content == "" {
		return nil
	}
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunk := strings.TrimSpace(buf.String())
		chunk = sanitizeUTF8(chunk)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for len(line) > maxLen {
			part := line[:maxLen]
			line = line[maxLen:]

			if buf.Len() > 0 {
				flush()
			}
			buf.WriteString(part)
			flush()
		}

		if buf.Len()+len(line)+1 > maxLen {
			flush()
		}

		buf.WriteString(line)
		buf.WriteRune('\n')
	}

	flush()
	return chunks
}

func extractTextFromPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}

	text := strings.TrimSpace(buf.String())
	text = sanitizeUTF8(text)
	return text, nil
}

// sanitizeUTF8 drops invalid UTF-8 bytes (Postgres rejects them with 22021).
func sanitizeUTF8(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
