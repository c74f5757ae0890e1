package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/identity"
)

const usage = `Simple CMS Admin CLI

A lightweight admin tool that reads the configured backing store directly.

USAGE:
  admin <command> [options]

COMMANDS:
  hash-password <password>   Print the bcrypt hash for ADMIN_PASSWORD_HASH
  articles                   List articles, newest first
  categories                 List categories
  stats                      Article counts per category and media host

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory | postgres://... | sqlite://path (default: memory)
  MEDIA_URL         Media backend, used to tell hosted from external media

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

OPTIONS:
  --category=<id>   Only articles in this category (articles only)
  --json            Output as JSON
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "help", "--help", "-h":
		fmt.Print(usage + "\n")
		return
	case "hash-password":
		if len(os.Args) < 3 {
			log.Fatal("hash-password requires a password argument")
		}
		hash, err := identity.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	opts := parseOptions(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(config.WithEnv(), config.WithEventLogging(false))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	rt, err := cfg.Build(ctx, nil, nil)
	if err != nil {
		log.Fatalf("Failed to open content: %v", err)
	}
	defer rt.Close(context.Background())

	if err := rt.Repository.Load(ctx); err != nil {
		log.Fatalf("Failed to load content: %v", err)
	}
	if src := rt.Repository.Snapshot().Source; src == simplecms.SourceSeed {
		fmt.Fprintln(os.Stderr, "warning: backing store unreachable, showing the seed dataset")
	}

	switch command {
	case "articles":
		handleArticles(rt.Repository, opts)
	case "categories":
		handleCategories(rt.Repository, opts)
	case "stats":
		handleStats(rt.Repository, rt.Media, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

type options struct {
	category string
	json     bool
}

func parseOptions(args []string) options {
	var opts options
	for _, arg := range args {
		key, value := parseFlag(arg)
		switch key {
		case "json":
			opts.json = true
		case "category":
			opts.category = value
		}
	}
	return opts
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func handleArticles(repo simplecms.Repository, opts options) {
	articles := repo.Articles()
	if opts.category != "" {
		articles = repo.ArticlesByCategory(opts.category)
	}
	if opts.json {
		printJSON(articles)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tDATE\tMEDIA")
	for _, a := range articles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, truncate(a.Title, 40), a.Category, a.Date, mediaSummary(a))
	}
	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(articles))
}

func handleCategories(repo simplecms.Repository, opts options) {
	categories := repo.Categories()
	if opts.json {
		printJSON(categories)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tICON\tARTICLES")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, c.Name, c.Icon, len(repo.ArticlesByCategory(c.ID)))
	}
	w.Flush()
}

// Stats summarises the cached content.
type Stats struct {
	Articles      int            `json:"articles"`
	Categories    int            `json:"categories"`
	ByCategory    map[string]int `json:"by_category"`
	HostedMedia   int            `json:"hosted_media"`
	ExternalMedia int            `json:"external_media"`
	WithoutMedia  int            `json:"without_media"`
	EmptyCategory []string       `json:"empty_categories,omitempty"`
	Source        string         `json:"source"`
	OldestArticle *time.Time     `json:"oldest_article,omitempty"`
	NewestArticle *time.Time     `json:"newest_article,omitempty"`
}

func computeStats(snap *simplecms.Snapshot, media simplecms.MediaStore) Stats {
	stats := Stats{
		Articles:   len(snap.Articles),
		Categories: len(snap.Categories),
		ByCategory: map[string]int{},
		Source:     string(snap.Source),
	}
	for _, a := range snap.Articles {
		stats.ByCategory[a.Category]++
		if a.ImageURL == "" && a.VideoURL == "" {
			stats.WithoutMedia++
		}
		for _, url := range []string{a.ImageURL, a.VideoURL} {
			switch {
			case url == "":
			case media != nil && media.Owns(url):
				stats.HostedMedia++
			default:
				stats.ExternalMedia++
			}
		}
		created := a.CreatedAt
		if stats.OldestArticle == nil || created.Before(*stats.OldestArticle) {
			stats.OldestArticle = &created
		}
		if stats.NewestArticle == nil || created.After(*stats.NewestArticle) {
			stats.NewestArticle = &created
		}
	}
	for _, c := range snap.Categories {
		if stats.ByCategory[c.ID] == 0 {
			stats.EmptyCategory = append(stats.EmptyCategory, c.ID)
		}
	}
	sort.Strings(stats.EmptyCategory)
	return stats
}

func handleStats(repo simplecms.Repository, media simplecms.MediaStore, opts options) {
	stats := computeStats(repo.Snapshot(), media)
	if opts.json {
		printJSON(stats)
		return
	}

	fmt.Println("=== Content Statistics ===")
	fmt.Printf("\nSource: %s\n", stats.Source)
	fmt.Printf("Articles: %d\nCategories: %d\n", stats.Articles, stats.Categories)

	if len(stats.ByCategory) > 0 {
		fmt.Println("\nBy Category:")
		ids := make([]string, 0, len(stats.ByCategory))
		for id := range stats.ByCategory {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %-20s: %d\n", truncate(id, 20), stats.ByCategory[id])
		}
	}

	fmt.Println("\nMedia:")
	fmt.Printf("  hosted   : %d\n  external : %d\n  none     : %d\n", stats.HostedMedia, stats.ExternalMedia, stats.WithoutMedia)

	if len(stats.EmptyCategory) > 0 {
		fmt.Printf("\nEmpty categories (safe to delete): %v\n", stats.EmptyCategory)
	}
	if stats.OldestArticle != nil && stats.NewestArticle != nil {
		fmt.Println("\nTime Range:")
		fmt.Printf("  Oldest: %s\n", stats.OldestArticle.Format(time.RFC3339))
		fmt.Printf("  Newest: %s\n", stats.NewestArticle.Format(time.RFC3339))
	}
}

func mediaSummary(a *simplecms.Article) string {
	switch {
	case a.ImageURL != "" && a.VideoURL != "":
		return "image+video"
	case a.ImageURL != "":
		return "image"
	case a.VideoURL != "":
		return "video"
	}
	return "-"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
